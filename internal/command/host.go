package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jindalujjwal0720/milan/internal/protocol"
	"github.com/jindalujjwal0720/milan/internal/ui"
)

var hostCmd = &cobra.Command{
	Use:     "host",
	Aliases: []string{"h"},
	Short:   "Host a new room and wait for peers",
	Long: `Create a new room on the coordinator and print its code. Share the
code with peers; each join request must be accepted before the peer
enters the call.

Examples:
  milan host
  milan host --server ws://call.example.com/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRoom()
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

func hostRoom() error {
	cfg := loadClientConfig()

	stopSpinner := ui.RunConnectionSpinner("Connecting to coordinator...")
	defer stopSpinner()
	ctx, err := NewConnectionContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	stopSpinner()

	ctx.Client.CreateRoom()

	var roomID string
	select {
	case id, ok := <-ctx.Handler.RoomCreated:
		if !ok {
			return errConnectionLost
		}
		roomID = id
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out waiting for the room to be created")
	}

	ui.PrintRoomCode(roomID)
	ui.PrintInfo("Waiting for peers to join...")

	snap := protocol.RoomSnapshot{
		ID:      roomID,
		Members: []string{ctx.SelfID},
		Host:    ctx.SelfID,
	}
	return runCallSession(ctx, snap, true)
}
