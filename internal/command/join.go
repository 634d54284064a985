package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jindalujjwal0720/milan/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-code>",
	Aliases: []string{"j"},
	Short:   "Join an existing room by its code",
	Long: `Ask to join the room with the given code. The host decides whether
to admit you; the call starts once you are accepted.

Examples:
  milan join mf3k2x1a-7q9z4r1b
  milan join --server ws://call.example.com/ws mf3k2x1a-7q9z4r1b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(roomID string) error {
	cfg := loadClientConfig()

	stopSpinner := ui.RunConnectionSpinner("Connecting to coordinator...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	ctx.Client.Join(roomID)

	stopSpinner = ui.RunWaitingSpinner("Waiting for the host to admit you...")
	defer stopSpinner()

	select {
	case snap, ok := <-ctx.Handler.Joined:
		stopSpinner()
		if !ok {
			return errConnectionLost
		}
		ui.PrintSuccess(fmt.Sprintf("Joined room %s", snap.ID))
		ui.RenderMembers(snap.Members, snap.Host, ctx.SelfID)
		return runCallSession(ctx, snap, false)

	case _, ok := <-ctx.Handler.JoinDenied:
		stopSpinner()
		if !ok {
			return errConnectionLost
		}
		return fmt.Errorf("the host denied your request to join")

	case _, ok := <-ctx.Handler.NotFound:
		stopSpinner()
		if !ok {
			return errConnectionLost
		}
		return fmt.Errorf("room %q does not exist", roomID)
	}
}
