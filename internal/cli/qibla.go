package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-companion/internal/display"
)

func newQiblaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qibla",
		Short: "Show the Qibla bearing for your location",
		Long:  "Print the direction of the Kaaba in degrees clockwise from true north.",
		RunE:  runQibla,
	}
}

func runQibla(cmd *cobra.Command, args []string) error {
	cfg := effectiveConfig(cmd)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.locate(cmd.Context())
	if err != nil {
		return err
	}

	dir, err := a.client.FetchQibla(cmd.Context(), loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("could not fetch qibla direction: %w", err)
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return writeJSON(out, qiblaJSON{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Direction: dir,
			Compass:   compassPoint(dir),
		})
	}

	fmt.Fprintf(out, "  %s  %s\n", display.Gray("Location"), buildLocationStr(loc))
	fmt.Fprintf(out, "  %s     %s from true north (%s)\n", display.Gray("Qibla"),
		display.Accent(fmt.Sprintf("%.2f°", dir)), compassPoint(dir))
	return nil
}

type qiblaJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Direction float64 `json:"direction"`
	Compass   string  `json:"compass"`
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// compassPoint names the eighth of the compass deg falls in.
func compassPoint(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return compassPoints[int(math.Round(deg/45))%len(compassPoints)]
}
