package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ShowCommand prints the per-day totals of the window.
type ShowCommand struct {
	Days int    `long:"days" description:"Window length in days (default from config)"`
	Date string `long:"date" description:"Reference date YYYY-MM-DD (default today)"`
	JSON bool   `long:"json" description:"Output in JSON format"`

	globals *GlobalFlags
	version string
}

// ExportCommand writes the per-day totals to a file.
type ExportCommand struct {
	Days   int    `long:"days" description:"Window length in days (default from config)"`
	Date   string `long:"date" description:"Reference date YYYY-MM-DD (default today)"`
	Format string `long:"format" description:"Output format: csv | json (default from config)"`
	Dir    string `long:"dir" description:"Destination directory (default from config)"`

	globals *GlobalFlags
	version string
}

// RegisterCommand stores the single user credential.
type RegisterCommand struct {
	User          string `long:"user" description:"User identifier (required)"`
	Password      string `long:"password" description:"Password"`
	PasswordStdin bool   `long:"password-stdin" description:"Read the password from the first line of stdin"`

	globals *GlobalFlags
	version string
}

// VerifyCommand checks a user identifier and password.
type VerifyCommand struct {
	User          string `long:"user" description:"User identifier (required)"`
	Password      string `long:"password" description:"Password"`
	PasswordStdin bool   `long:"password-stdin" description:"Read the password from the first line of stdin"`

	globals *GlobalFlags
	version string
}

// ImportCommand loads step samples from a CSV file.
type ImportCommand struct {
	Source string `long:"source" description:"Source label stored with each sample" default:"import"`
	Args   struct {
		File string `positional-arg-name:"file" description:"CSV file, or - for stdin"`
	} `positional-args:"yes" required:"yes"`

	globals *GlobalFlags
	version string
}

// AddCommand records one step sample.
type AddCommand struct {
	Count  int64  `long:"count" description:"Number of steps (required)"`
	Start  string `long:"start" description:"Sample start, RFC 3339 (required)"`
	End    string `long:"end" description:"Sample end, RFC 3339 (default: same as start)"`
	Source string `long:"source" description:"Source label" default:"manual"`

	globals *GlobalFlags
	version string
}
