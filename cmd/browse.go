package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"webplayer/client"
	"webplayer/player"
)

var flagServer string

var browseCmd = &cobra.Command{
	Use:   "browse [path]",
	Short: "List a folder on a running server and the playlist it yields",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		api := client.New(flagServer)
		settings := client.NewSettings(api)
		_ = settings.Load(cmd.Context())

		listing, err := api.List(cmd.Context(), path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  /%s\n", settings.AppTitle(), listing.Path)
		if intro := settings.String("intro", ""); intro != "" {
			fmt.Fprintln(out, intro)
		}
		if listing.IsEmpty() {
			fmt.Fprintln(out, "(empty folder)")
			return nil
		}
		for _, dir := range listing.Directories {
			fmt.Fprintf(out, "  %s/\n", dir)
		}

		playlist := player.BuildPlaylist(listing)
		fmt.Fprintf(out, "\nPlaylist (%d):\n", len(playlist))
		for i, entry := range playlist {
			fmt.Fprintf(out, "  %2d. [%s] %s\n      %s\n", i+1, strings.ToUpper(string(entry.Kind[:1])), entry.Name, api.MediaURL(entry.Path))
		}
		return nil
	},
}

func init() {
	browseCmd.Flags().StringVar(&flagServer, "server", "http://localhost:8080", "server base URL")
}
