package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pluginrefs/internal/labels"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Parse issue-tracker labels and URLs",
}

var labelValueCmd = &cobra.Command{
	Use:   "value <key> <label>...",
	Short: "Print the value of key:value labels",
	Long: `Print every value of the labels named key:value, one per line.

Examples:
  pluginrefs label value Team "Team:Operations" "Feature:Lens" "Team:AppArch"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ls := make([]labels.Label, 0, len(args)-1)
		for _, name := range args[1:] {
			ls = append(ls, labels.Label{Name: name})
		}
		for _, v := range labels.ExtractValues(ls, args[0]) {
			fmt.Println(v)
		}
		return nil
	},
}

var labelVersionCmd = &cobra.Command{
	Use:   "version <label>",
	Short: "Print the major.minor version in a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := labels.ExtractVersionNumber(args[0])
		if !ok {
			return fmt.Errorf("no version in %q", args[0])
		}
		fmt.Println(v)
		return nil
	},
}

var labelIssueCmd = &cobra.Command{
	Use:   "issue <url>",
	Short: "Print the issue number of an issue URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(labels.ExtractIssueNumber(args[0]))
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelValueCmd, labelVersionCmd, labelIssueCmd)
	rootCmd.AddCommand(labelCmd)
}
