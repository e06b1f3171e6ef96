package api

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/voyago/voyago/pkg/database"
	"github.com/voyago/voyago/pkg/places"
	"github.com/voyago/voyago/pkg/planner"
	"github.com/voyago/voyago/pkg/redis_client"
	"github.com/voyago/voyago/pkg/ticketlink"
	"github.com/voyago/voyago/pkg/util"
	"googlemaps.github.io/maps"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					mapsClient, err := maps.NewClient(maps.WithAPIKey(util.GetEnvironmentVariable("VOYAGO_MAPS_API_KEY", "")))
					if err != nil {
						return err
					}

					resolver := places.NewResolver(mapsClient)

					if err := redis_client.Connect(); err != nil {
						log.Warn().Err(err).Msg("Redis unavailable, running without geocode cache")
					} else {
						resolver.EnableCache()
					}

					tickets, err := ticketlink.NewBuilder()
					if err != nil {
						return err
					}

					searchPlanner := planner.New(resolver, planner.NewGoogleDirections(), tickets, planner.DefaultMapContext())

					return SetupServer(c.String("listen"), searchPlanner)
				},
			},
		},
	}
}
