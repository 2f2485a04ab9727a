package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rpsvision/internal/client"
	"rpsvision/internal/client/capture"
	"rpsvision/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	releaseVersion = "1.0.0"
	windowTitle    = "Rock Paper Scissors"
)

func main() {
	log.SetFlags(0)
	cfg := &client.Config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

func newCmd(cfg *client.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "rps-client",
		Short:         "Play rock-paper-scissors in front of your webcam against a friend.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.ServerURL, "server", "s", client.DefaultServerURL, "prediction websocket URL (env: RPS_SERVER)")
	fs.IntVarP(&cfg.Device, "device", "d", 0, "webcam device index (env: RPS_DEVICE)")
	fs.DurationVarP(&cfg.Interval, "interval", "i", client.DefaultInterval, "time between frames sent for prediction (env: RPS_INTERVAL)")
	fs.IntVarP(&cfg.Quality, "quality", "q", client.DefaultQuality, "JPEG quality of sent frames, 1-100 (env: RPS_QUALITY)")
	fs.BoolVar(&cfg.Headless, "headless", false, "play without a preview window (env: RPS_HEADLESS)")
	fs.StringVar(&cfg.LogDir, "log-dir", "", "directory for log files, console only when empty (env: RPS_LOG_DIR)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display every round and result (env: RPS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("rps-client v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func play(ctx context.Context, cfg *client.Config) error {
	appLogger, err := logger.New(cfg.LogDir)
	if err != nil {
		return err
	}
	defer appLogger.Close()
	appLogger.SetInfoEnabled(cfg.Verbose)

	camera, err := capture.OpenCamera(cfg.Device, cfg.Quality)
	if err != nil {
		return err
	}
	defer camera.Close()

	socket, err := client.Dial(ctx, cfg.ServerURL)
	if err != nil {
		appLogger.Error("%v", err)
		return errors.New(client.MsgSocketError)
	}
	defer socket.Close()

	var display client.Display
	if !cfg.Headless {
		window := capture.NewWindow(windowTitle, camera)
		defer window.Close()
		display = window
	}

	session := client.NewSession(camera, display, socket, cfg.Interval, appLogger)
	err = session.Run(ctx)

	final := session.Scoreboard().Snapshot()
	fmt.Printf("Final score: Player 1 %d - %d Player 2 (%s)\n", final.Player1Wins, final.Player2Wins, final.UltimateWinner)
	return err
}
