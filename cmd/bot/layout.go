package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Proton-105/koi-bot/internal/bot/keyboard"
)

func newLayoutCmd() *cobra.Command {
	var (
		asJSON bool
		wallet int
	)

	cmd := &cobra.Command{
		Use:       "layout <main|buy|sell>",
		Short:     "Print the keyboard a menu renders with default toggles",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(keyboard.MenuMain), string(keyboard.MenuBuy), string(keyboard.MenuSell)},
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := renderLayout(keyboard.Menu(args[0]), wallet)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(layout)
			}
			return printLayout(cmd.OutOrStdout(), layout)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON.")
	cmd.Flags().IntVar(&wallet, "wallet", 0, "Select wallet 1-3 instead of the default.")

	return cmd
}

func renderLayout(menu keyboard.Menu, wallet int) (keyboard.Layout, error) {
	layout, err := keyboard.NewBuilder(nil).Build(menu, keyboard.DefaultToggles(menu))
	if err != nil {
		return nil, err
	}

	if wallet != 0 {
		if wallet < 1 || wallet > 3 {
			return nil, fmt.Errorf("wallet must be 1, 2 or 3, got %d", wallet)
		}
		layout, err = layout.WithWallet(keyboard.Action(fmt.Sprintf("Wallet %d", wallet)))
		if err != nil {
			return nil, err
		}
	}

	if _, err := keyboard.ToMarkup(layout); err != nil {
		return nil, err
	}
	return layout, nil
}

func printLayout(w io.Writer, layout keyboard.Layout) error {
	for _, row := range layout {
		labels := make([]string, len(row))
		for i, btn := range row {
			labels[i] = "[" + btn.Text + "]"
		}
		if _, err := fmt.Fprintln(w, strings.Join(labels, " ")); err != nil {
			return err
		}
	}

	sub := "none"
	if s, ok := keyboard.Classify(layout); ok {
		sub = string(s)
	}
	_, err := fmt.Fprintf(w, "submenu: %s\n", sub)
	return err
}
