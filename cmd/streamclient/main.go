// Command streamclient is the SDL-backed remote-desktop viewer: it dials a
// GameStream-style signaling server, negotiates WebRTC (falling back to a
// multiplexed WebSocket), and renders the decoded video/audio locally while
// forwarding keyboard/mouse/touch/gamepad input back to the host.
//
// Grounded on the teacher's cmd/client/main.go (thin flag-parsing entry
// point delegating to a library Setup call) and helixml-helix's
// cmd/helix/hydra main.go (cobra root command + zerolog setup + signal
// handling), composed rather than copied since this client has no
// subcommands to register.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/n0remac/streamclient/internal/app"
	"github.com/n0remac/streamclient/internal/config"
	"github.com/n0remac/streamclient/internal/signaling"
)

func main() {
	// SDL's window/event APIs are only safe from the thread that called
	// sdl.Init; cobra's Execute runs synchronously on this goroutine so
	// locking here is sufficient for the whole program's lifetime.
	runtime.LockOSThread()

	v := viper.New()
	cmd := newRootCmd(v)
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("streamclient exited with error")
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var (
		serverURL    string
		hostID       string
		appID        string
		bitrate      int
		packetSize   int
		fps          int
		width        int
		height       int
		transportPref string
		logLevel     string
		configFile   string
	)

	cmd := &cobra.Command{
		Use:   "streamclient",
		Short: "Remote desktop / cloud-gaming streaming client",
		Long:  "Connects to a GameStream-style streaming host and renders the session locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(logLevel)

			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					log.Warn().Err(err).Str("file", configFile).Msg("failed to read config file, continuing with defaults")
				}
			}
			settings, err := config.Load(v)
			if err != nil {
				return err
			}

			opts := app.Options{
				ServerURL:            serverURL,
				HostID:               hostID,
				AppID:                appID,
				Bitrate:              bitrate,
				PacketSize:           packetSize,
				FPS:                  fps,
				Width:                width,
				Height:               height,
				VideoFrameQueueSize:  4,
				AudioSampleQueueSize: 8,
				Colorspace:           "bt709",
				FullRange:            false,
				PreferredTransport:   signaling.TransportKind(transportPref),
				Settings:             settings,
			}

			if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_GAMECONTROLLER | sdl.INIT_HAPTIC); err != nil {
				return err
			}
			defer sdl.Quit()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
				cancel()
			}()

			client := app.New(opts, log.Logger)
			err = client.Run(ctx)
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverURL, "server", "wss://localhost/host/stream", "Signaling WebSocket URL")
	flags.StringVar(&hostID, "host-id", "", "Target host id")
	flags.StringVar(&appID, "app-id", "", "Target app id")
	flags.IntVar(&bitrate, "bitrate", 20_000_000, "Target video bitrate in bits/sec")
	flags.IntVar(&packetSize, "packet-size", 1392, "RTP payload packet size")
	flags.IntVar(&fps, "fps", 60, "Target frame rate")
	flags.IntVar(&width, "width", 1280, "Requested stream width")
	flags.IntVar(&height, "height", 720, "Requested stream height")
	flags.StringVar(&transportPref, "transport", string(signaling.TransportAuto), "Preferred transport: Auto, WebRTC, WebSocket")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&configFile, "config", "", "Path to an optional StreamSettings config file")

	bindFlag(v, flags, "video_width", "width")
	bindFlag(v, flags, "video_height", "height")

	return cmd
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, flag string) {
	_ = v.BindPFlag(key, flags.Lookup(flag))
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
