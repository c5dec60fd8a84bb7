package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"aromabot/pkg/router"

	"github.com/spf13/cobra"
)

var (
	classifyCallback string
	classifyChatID   string
	classifyJSON     bool
	classifyTaxonomy string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a message without sending anything",
	Long:  "Runs the request router offline on a text message or a callback payload and prints the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		taxonomy, err := router.LoadTaxonomy(classifyTaxonomy)
		if err != nil {
			return err
		}

		event := classifyEvent(args, classifyCallback, classifyChatID)
		result := router.New(taxonomy).Analyze(event)
		return writeResult(cmd.OutOrStdout(), result, classifyJSON)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVar(&classifyCallback, "callback", "", "classify a button press with this payload instead of text")
	classifyCmd.Flags().StringVar(&classifyChatID, "chat", "cli", "chat id to attach to the event")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	classifyCmd.Flags().StringVar(&classifyTaxonomy, "taxonomy", "", "taxonomy YAML file (default: embedded)")
}

func classifyEvent(args []string, callback string, chatID string) router.InboundEvent {
	if payload := strings.TrimSpace(callback); payload != "" {
		return router.CallbackEvent{
			ChatID:     chatID,
			UserID:     chatID,
			CallbackID: "cli",
			Payload:    payload,
		}
	}

	return router.TextMessage{
		ChatID: chatID,
		UserID: chatID,
		Text:   strings.Join(args, " "),
	}
}

func writeResult(w io.Writer, result router.Result, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(result)
	}

	lines := []string{fmt.Sprintf("category: %s", result.Category)}
	if result.NormalizedText != "" {
		lines = append(lines, fmt.Sprintf("normalized: %s", result.NormalizedText))
	}
	if result.Reason != "" {
		lines = append(lines, fmt.Sprintf("reason: %s", result.Reason))
	}
	if meta := result.Metadata; !meta.IsEmpty() {
		if meta.OilName != "" {
			lines = append(lines, fmt.Sprintf("oil: %s", meta.OilName))
		}
		if meta.Mood != "" {
			lines = append(lines, fmt.Sprintf("mood: %s", meta.Mood))
		}
		if len(meta.Keywords) > 0 {
			lines = append(lines, fmt.Sprintf("keywords: %s", strings.Join(meta.Keywords, ", ")))
		}
		if meta.CallbackPayload != "" {
			lines = append(lines, fmt.Sprintf("callback: %s", meta.CallbackPayload))
		}
	}

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
