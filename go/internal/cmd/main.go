package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typerace/go/internal/race"
	"github.com/mcdev12/typerace/go/internal/rooms"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	roomID := flag.String("room", "", "room id to join; empty creates a new room")
	forceStart := flag.Bool("start", false, "force-start the room after joining")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := rooms.NewClient(config.APIURL, config.Token)

	id := *roomID
	if id == "" {
		id, err = client.CreateRandom(ctx, config.Dictionary)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create room")
		}
		log.Info().Str("room_id", id).Msg("created room")
	}

	session := race.NewSession(ctx, race.Config{
		RoomID:    id,
		WSBaseURL: wsBaseURL(config.APIURL),
		Token:     config.Token,
		Starter:   client,
	})
	defer session.Stop()

	if *forceStart {
		session.RequestForceStart()
	}

	// Keystrokes come from stdin. The terminal is line-buffered, so input
	// reaches the race one full line at a time; good enough for a dev CLI.
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			r, _, err := reader.ReadRune()
			if err != nil {
				return
			}
			if r == '\n' {
				continue
			}
			session.SendKeystroke(r)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			session.Stop()
			<-session.Done()
			return

		case snap, ok := <-session.Snapshots():
			if !ok {
				return
			}
			render(snap)
			if snap.Phase.Terminal() {
				<-session.Done()
				return
			}
		}
	}
}

func render(snap race.Snapshot) {
	switch snap.Phase {
	case race.PhaseCountdown:
		log.Info().Int("seconds", snap.CountdownRemaining).Msg("race starting")
	case race.PhaseRacing:
		log.Info().
			Float64("progress", snap.Progress).
			Int("mistakes", snap.Mistakes).
			Float64("wpm", snap.SpeedWPM).
			Int("typed", len(snap.Typed)).
			Msg("racing")
	case race.PhaseFinished:
		if snap.Result != nil {
			log.Info().
				Int64("total_time_ms", snap.Result.TotalTimeMS).
				Int("mistakes", snap.Result.Mistakes).
				Float64("accuracy", snap.Result.Accuracy).
				Float64("wpm", snap.Result.SpeedWPM).
				Msg("race finished")
		}
	case race.PhaseDisconnected, race.PhaseError:
		log.Warn().Str("phase", string(snap.Phase)).Str("notice", snap.Notice).Msg("session ended")
	}
}
