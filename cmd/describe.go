package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"devservices/internal"
	"devservices/internal/backend"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the container that would be started, without starting it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, err := buildReader(propertiesPath)
			if err != nil {
				return err
			}
			desc, err := internal.Describe(reader)
			if err != nil {
				return err
			}
			printDescriptor(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func maskEnv(env []string) []string {
	masked := make([]string, 0, len(env))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if strings.Contains(key, "PASSWORD") {
			kv = key + "=********"
		}
		masked = append(masked, kv)
	}
	return masked
}

func printDescriptor(w io.Writer, desc backend.Descriptor) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	table.Append([]string{"backend", desc.Kind.String()})
	table.Append([]string{"image", desc.Image})
	table.Append([]string{"container port", strconv.Itoa(desc.ContainerPort)})
	table.Append([]string{"host port", fmt.Sprintf("0.0.0.0:%d", desc.HostBindPort)})
	for _, kv := range maskEnv(desc.EnvList()) {
		table.Append([]string{"env", kv})
	}
	table.Append([]string{"readiness", desc.ReadinessPath})
	table.Render()
}
