package main

import (
	"fmt"
	"strings"

	"github.com/Amund211/lana/internal/fingerprint"
	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	var (
		age  int
		mode string
	)

	cmd := &cobra.Command{
		Use:   "fingerprint <topic>",
		Short: "Print the cache keys a lesson topic resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")

			var agePtr *int
			if cmd.Flags().Changed("age") {
				agePtr = &age
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "normalized topic: %s\n", fingerprint.NormalizeTopic(topic))
			fmt.Fprintf(out, "lessons key:      %s\n", fingerprint.Lesson(topic, agePtr, mode))
			fmt.Fprintf(out, "popular key:      %s\n", fingerprint.Popular(topic))
			return nil
		},
	}

	cmd.Flags().IntVar(&age, "age", 0, "learner age")
	cmd.Flags().StringVar(&mode, "mode", fingerprint.ModeDefault, "request mode")

	return cmd
}
