package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sm5714/adapter"
	"github.com/mklimuk/sm5714/cmd/sm5714/console"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "list USB HID devices",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		devices := hid.Enumerate(0, 0)
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
		for _, dev := range devices {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var knownBridges = map[string][2]uint16{
	"MCP2221": {adapter.VendorID, adapter.ProductID},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "find supported I2C bridges",
	Action: func(c *cli.Context) error {
		devices := hid.Enumerate(0, 0)
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tVENDOR\tPRODUCT\tDEVICE\n")
		found := map[string]int{}
		for _, dev := range devices {
			for name, codes := range knownBridges {
				if codes[0] == dev.VendorID && codes[1] == dev.ProductID {
					_, _ = fmt.Fprintf(w, "%d\t%#x\t%#x\t%s\n", found[name], dev.VendorID, dev.ProductID, name)
					found[name]++
				}
			}
		}
		return w.Flush()
	},
}
