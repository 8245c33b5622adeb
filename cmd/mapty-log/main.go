package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/claude/mapty/internal/client"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/workout"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "mapty server URL")
	apiKey := flag.String("api-key", os.Getenv("MAPTY_AUTH_API_KEY"), "API key for write endpoints")
	kind := flag.String("type", "running", "workout type: running or cycling")
	distance := flag.String("distance", "", "distance in km")
	duration := flag.String("duration", "", "duration in minutes")
	cadence := flag.String("cadence", "", "cadence in steps/min (running)")
	elevation := flag.String("elevation", "", "elevation gain in meters (cycling)")
	lat := flag.Float64("lat", 0, "latitude of the workout")
	lng := flag.Float64("lng", 0, "longitude of the workout")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mapty-log", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *distance == "" || *duration == "" {
		fmt.Fprintf(os.Stderr, "Usage: mapty-log -type running|cycling -distance KM -duration MIN [-cadence SPM | -elevation M] -lat LAT -lng LNG\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := client.NewClient(*serverURL, *apiKey)
	at := workout.Coordinates{Lat: *lat, Lng: *lng}

	// The CLI has no geolocation; the workout location doubles as the position.
	if err := c.SetPosition(ctx, at); err != nil {
		log.Error("setting position failed", "error", err)
		os.Exit(1)
	}

	view, err := c.Submit(ctx, form.Input{
		Type:      *kind,
		Distance:  *distance,
		Duration:  *duration,
		Cadence:   *cadence,
		Elevation: *elevation,
		Lat:       strconv.FormatFloat(*lat, 'f', -1, 64),
		Lng:       strconv.FormatFloat(*lng, 'f', -1, 64),
	})
	if err != nil {
		log.Error("logging workout failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(view.Marker.Content)
	for _, d := range view.Entry.Details {
		fmt.Printf("  %s %s %s\n", d.Icon, d.Value, d.Unit)
	}
	log.Info("workout logged", "id", view.Workout.ID)
}
