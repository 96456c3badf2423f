package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/netops-toolbox/supportwatch/internal/app"
	"github.com/netops-toolbox/supportwatch/internal/device"
)

var cmdLookup = &cobra.Command{
	Use:   "lookup",
	Short: "Fetch the aggregate support record for a device",
	Run: func(cmd *cobra.Command, args []string) {
		runLookup(cmd.Context())
	},
}

// command lookup device attributes
type lookupFlags struct {
	serial       string
	manufacturer string
	model        string
	platform     string
	customFields []string
	dump         bool
}

var (
	lookupFlagSet = &lookupFlags{}
)

func runLookup(ctx context.Context) {
	theApp, err := app.New(cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	aggregator, err := initAggregator(theApp)
	if err != nil {
		theApp.Logger.Fatal(err)
	}

	d := &device.Device{
		Serial:       lookupFlagSet.serial,
		Manufacturer: lookupFlagSet.manufacturer,
		Model:        lookupFlagSet.model,
		Platform:     lookupFlagSet.platform,
		CustomFields: map[string]string{},
	}

	for _, field := range lookupFlagSet.customFields {
		key, value, found := strings.Cut(field, "=")
		if !found {
			theApp.Logger.Fatal("custom field parameters take the form key=value: " + field)
		}

		d.CustomFields[key] = value
	}

	record := aggregator.Lookup(ctx, d)

	if lookupFlagSet.dump {
		spew.Dump(record)

		return
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		theApp.Logger.Fatal(err)
	}

	fmt.Println(string(out))
}

func init() {
	rootCmd.AddCommand(cmdLookup)

	cmdLookup.PersistentFlags().StringVar(&lookupFlagSet.serial, "serial", "", "device serial number, comma-joined for stacks")
	cmdLookup.PersistentFlags().StringVar(&lookupFlagSet.manufacturer, "manufacturer", "", "device manufacturer name")
	cmdLookup.PersistentFlags().StringVar(&lookupFlagSet.model, "model", "", "device type model, e.g. C9300-48P")
	cmdLookup.PersistentFlags().StringVar(&lookupFlagSet.platform, "platform", "", "platform display name")
	cmdLookup.PersistentFlags().StringSliceVar(&lookupFlagSet.customFields, "custom-field", nil, "custom field as key=value, repeatable")
	cmdLookup.PersistentFlags().BoolVar(&lookupFlagSet.dump, "dump", false, "dump the record instead of printing JSON")

	required := []string{"serial", "manufacturer"}
	for _, r := range required {
		if err := cmdLookup.MarkPersistentFlagRequired(r); err != nil {
			log.Fatal(err)
		}
	}
}
