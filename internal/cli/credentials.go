package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrMismatch is returned by verify when the credentials do not match.
var ErrMismatch = errors.New("credentials do not match")

// Execute implements the go-flags Commander interface for RegisterCommand.
func (c *RegisterCommand) Execute(args []string) error {
	if c.User == "" {
		return fmt.Errorf("--user is required for register command")
	}

	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWith(e)
}

// executeWith runs the register logic against a prepared env (used by tests).
func (c *RegisterCommand) executeWith(e *env) error {
	password, err := readPassword(c.Password, c.PasswordStdin, os.Stdin)
	if err != nil {
		return err
	}

	ctx := context.Background()
	registered, err := e.creds.IsRegistered(ctx)
	if err != nil {
		return err
	}
	if err := e.creds.Register(ctx, c.User, password); err != nil {
		return fmt.Errorf("registering user: %w", err)
	}

	if registered {
		fmt.Printf("Replaced registration with user %s\n", c.User)
	} else {
		fmt.Printf("Registered user %s\n", c.User)
	}
	return nil
}

// Execute implements the go-flags Commander interface for VerifyCommand.
func (c *VerifyCommand) Execute(args []string) error {
	if c.User == "" {
		return fmt.Errorf("--user is required for verify command")
	}

	e, err := openEnv(c.globals, false)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWith(e)
}

// executeWith runs the verify logic against a prepared env (used by tests).
func (c *VerifyCommand) executeWith(e *env) error {
	password, err := readPassword(c.Password, c.PasswordStdin, os.Stdin)
	if err != nil {
		return err
	}

	ok, err := e.creds.Verify(context.Background(), c.User, password)
	if err != nil {
		return fmt.Errorf("verifying credentials: %w", err)
	}
	if !ok {
		return ErrMismatch
	}

	fmt.Println("Credentials verified")
	return nil
}
