package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/menta2k/bin-go/internal/utils"
	"github.com/menta2k/bin-go/pkg/types"
)

var probe bool

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an item by text, label or photo",
}

var classifyTextCmd = &cobra.Command{
	Use:   "text <description>",
	Short: "Classify a free-text item description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return eris.New("no text provided")
		}
		bg, err := buildBinGo(cfg, nil)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), bg.ClassifyText(text))
	},
}

var classifyLabelCmd = &cobra.Command{
	Use:   "label <label>",
	Short: "Classify a single image model label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bg, err := buildBinGo(cfg, nil)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), bg.ClassifyLabel(args[0]))
	},
}

var classifyImageCmd = &cobra.Command{
	Use:   "image <path|URL>",
	Short: "Classify a photo with the configured vision backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		if !utils.IsURL(source) {
			if !utils.FileExists(source) {
				return eris.Errorf("image file not found: %s", source)
			}
			if !utils.IsImageFile(source) {
				return eris.Errorf("unsupported image type %q", utils.GetFileExtension(source))
			}
		}

		bg, err := buildBinGo(cfg, nil)
		if err != nil {
			return err
		}

		if probe {
			out, err := bg.Probe(cmd.Context(), source)
			if err != nil {
				return eris.Wrap(err, "probe failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}

		res, err := bg.ClassifyImageSource(cmd.Context(), source)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

func printResult(w io.Writer, res types.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	d := res.Bin.Display()
	fmt.Fprintf(w, "%s %s\n", d.Icon, d.Title)
	switch {
	case res.Label != "" && res.Confidence > 0:
		fmt.Fprintf(w, "source: %s (label %q, confidence %.2f)\n", res.Source, res.Label, res.Confidence)
	case res.Label != "":
		fmt.Fprintf(w, "source: %s (label %q)\n", res.Source, res.Label)
	default:
		fmt.Fprintf(w, "source: %s\n", res.Source)
	}
	return nil
}

func init() {
	classifyImageCmd.Flags().BoolVar(&probe, "probe", false, "ask the backend to describe the image instead of classifying it")
	classifyCmd.AddCommand(classifyTextCmd, classifyLabelCmd, classifyImageCmd)
	rootCmd.AddCommand(classifyCmd)
}
