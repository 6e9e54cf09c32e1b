package options

import (
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/mitchellh/go-homedir"
)

// Version is reported by --version.
const Version = "0.2.0"

type Options struct {
	File        string           `arg:"" optional:"" help:"Policy document to verify. Reads stdin when omitted."`
	Role        string           `short:"r" xor:"source" help:"Verify every policy attached to this IAM role (name or ARN)."`
	Pod         string           `short:"p" xor:"source" help:"Verify the policies of the IAM role bound to this pod's service account."`
	Namespace   string           `short:"n" default:"default" help:"Namespace of the pod."`
	KubeConfig  string           `name:"kubeconfig" env:"KUBECONFIG" default:"${kubeconfig}" help:"Path to the kubeconfig file."`
	Region      string           `env:"AWS_REGION,AWS_DEFAULT_REGION" help:"AWS region for IAM calls."`
	OnlyFlagged bool             `help:"Only list policies whose first statement applies to every resource."`
	NoColor     bool             `help:"Disable colored output."`
	Debug       bool             `short:"d" help:"Enable debug logging."`
	LogFormat   string           `enum:"text,json" default:"text" help:"Log format (text, json)."`
	Version     kong.VersionFlag `short:"v" help:"Show version information."`
}

func NewOptions() *Options {
	return &Options{}
}

// Parse fills o from args, which must not include the program name.
func (o *Options) Parse(args []string, extra ...kong.Option) error {
	parser, err := o.parser(extra...)
	if err != nil {
		return err
	}
	if _, err := parser.Parse(args); err != nil {
		return err
	}
	return o.Validate()
}

// Validate rejects a document path combined with a role or pod lookup.
func (o *Options) Validate() error {
	if o.File != "" && (o.Role != "" || o.Pod != "") {
		return fmt.Errorf("a policy file cannot be combined with --role or --pod")
	}
	return nil
}

// Remote reports whether policies are fetched from AWS rather than read locally.
func (o *Options) Remote() bool {
	return o.Role != "" || o.Pod != ""
}

func (o *Options) parser(extra ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name("pstar"),
		kong.Description("Checks whether an IAM role policy's first statement applies to every resource (\"*\")."),
		kong.UsageOnError(),
		kong.Vars{
			"kubeconfig": defaultKubeConfig(),
			"version":    Version,
		},
	}
	return kong.New(o, append(opts, extra...)...)
}

func defaultKubeConfig() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}
