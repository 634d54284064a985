package command

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jindalujjwal0720/milan/internal/config"
	"github.com/jindalujjwal0720/milan/internal/ui"
	"github.com/jindalujjwal0720/milan/internal/version"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "milan",
	Short:   "Peer-to-peer video calls from the terminal using WebRTC",
	Long:    `Milan connects peers for direct video calls using WebRTC technology. One peer hosts a room and shares its code; others ask to join and are admitted by the host. Media flows peer to peer; the coordinator only relays the negotiation.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "coordinator websocket URL")
	rootCmd.PersistentFlags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	rootCmd.PersistentFlags().StringVar(&flagTURN, "turn", "", "TURN server URL")
	rootCmd.PersistentFlags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	rootCmd.PersistentFlags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
}

func loadClientConfig() *config.Client {
	return config.LoadClient(config.ClientOptions{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
}
