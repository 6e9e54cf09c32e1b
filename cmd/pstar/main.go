package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/internal/input"
	"github.com/berkguzel/pstar/internal/logger"
	"github.com/berkguzel/pstar/internal/options"
	"github.com/berkguzel/pstar/pkg/analyzer"
	"github.com/berkguzel/pstar/pkg/aws"
	"github.com/berkguzel/pstar/pkg/kubernetes"
	"github.com/berkguzel/pstar/pkg/printer"
)

// Client constructors, replaced in tests.
var (
	newAWSClient = func(region string) (analyzer.AWSClient, error) {
		c, err := aws.NewClient(region)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	newK8sClient = func(kubeconfig string) (analyzer.K8sClient, error) {
		c, err := kubernetes.NewClient(kubeconfig)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
)

func main() {
	opts := options.NewOptions()
	if err := opts.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pstar: %v\n", err)
		os.Exit(1)
	}

	logger.SetFormatter(opts.LogFormat)
	if opts.Debug {
		logger.SetLevel("debug")
	}

	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errors.UserFriendlyError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options.Options, stdin io.Reader, stdout io.Writer) error {
	log := logger.New("pstar")
	p := printer.New(stdout, opts)

	if !opts.Remote() {
		text, err := input.Read(opts.File, stdin)
		if err != nil {
			return err
		}
		log.Debug("read policy document", "file", opts.File, "bytes", len(text))

		acceptable, err := analyzer.New(nil, nil).VerifyDocument(text)
		if err != nil {
			return err
		}
		return p.PrintVerdict(acceptable)
	}

	awsClient, err := newAWSClient(opts.Region)
	if err != nil {
		return err
	}

	var k8sClient analyzer.K8sClient
	if opts.Pod != "" {
		k8sClient, err = newK8sClient(opts.KubeConfig)
		if err != nil {
			return err
		}
	}

	report, err := analyzer.New(k8sClient, awsClient).Analyze(ctx, opts)
	if report.IAMRole != "" && (err == nil || len(report.Verdicts) > 0) {
		if printErr := p.PrintReport(report); printErr != nil {
			return printErr
		}
	}
	return err
}
