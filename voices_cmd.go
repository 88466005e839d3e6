package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/hum/tts"
	"github.com/dgnsrekt/hum/tts/audio"
	"github.com/dgnsrekt/hum/tts/hume"
)

var (
	refreshVoices bool
	copyVoiceID   bool

	voicesCmd = &cobra.Command{
		Use:   "voices [QUERY]",
		Short: "List and search your custom voices",
		Long: paragraph(
			fmt.Sprintf("\n%s the custom voices saved on your account. An optional query fuzzy-matches voice names, best match first.", keyword("List")),
		),
		Example: paragraph("hum voices\nhum voices narrator --copy\nhum voices save GENERATION_ID narrator"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runVoices,
	}

	saveVoiceCmd = &cobra.Command{
		Use:   "save GENERATION_ID NAME",
		Short: "Save a generation as a reusable custom voice",
		Long: paragraph(
			fmt.Sprintf("\n%s a previous generation as a custom voice. The generation id is printed in debug logs and carried on every played utterance.", keyword("Save")),
		),
		Args: cobra.ExactArgs(2),
		RunE: runSaveVoice,
	}
)

func init() {
	voicesCmd.Flags().BoolVarP(&refreshVoices, "refresh", "r", false, "fetch the voice list from the service")
	voicesCmd.Flags().BoolVar(&copyVoiceID, "copy", false, "copy the best match's voice id to the clipboard")
	voicesCmd.AddCommand(saveVoiceCmd)
}

// voicesClient builds a speech client that never opens an audio device.
func voicesClient() (*tts.Client, error) {
	return newSpeechClient(tts.WithPlayer(audio.NewMockPlayer(audio.DefaultConfig())))
}

func runVoices(cmd *cobra.Command, args []string) error {
	client, err := voicesClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	voices := client.Voices()
	if refreshVoices || len(voices) == 0 {
		voices, err = client.RefreshVoices(cmd.Context())
		if err != nil {
			return fmt.Errorf("unable to refresh voices: %w", err)
		}
	}

	if len(args) == 1 {
		voices = matchVoices(voices, args[0])
	}
	if len(voices) == 0 {
		fmt.Println("No custom voices found. Save one with: hum voices save GENERATION_ID NAME")
		return nil
	}

	if copyVoiceID {
		best := voices[0]
		if err := clipboard.WriteAll(best.ID); err != nil {
			return fmt.Errorf("unable to copy to clipboard: %w", err)
		}
		fmt.Printf("Copied %s (%s) to the clipboard.\n", best.Name, best.ID)
		return nil
	}

	fmt.Println(voicesTable(voices))
	return nil
}

// matchVoices fuzzy-filters voices by name, best match first.
func matchVoices(voices []hume.CustomVoice, query string) []hume.CustomVoice {
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = v.Name
	}

	matches := fuzzy.Find(query, names)
	out := make([]hume.CustomVoice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func voicesTable(voices []hume.CustomVoice) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers("NAME", "VOICE ID", "BASE", "CREATED")

	for _, v := range voices {
		t.Row(v.Name, v.ID, v.BaseVoice, humanize.Time(v.CreatedAt()))
	}
	return t.String()
}

func runSaveVoice(cmd *cobra.Command, args []string) error {
	client, err := voicesClient()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	saved, err := client.SaveVoice(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("unable to save voice: %w", err)
	}
	fmt.Printf("Saved voice %s (%s).\n", saved.Name, saved.ID)
	return nil
}
