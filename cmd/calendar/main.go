package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"team-calendar/internal/config"
	"team-calendar/internal/export"
	"team-calendar/internal/models"
	"team-calendar/internal/repository"
	"team-calendar/internal/service"
	"team-calendar/pkg/telegram"
	"team-calendar/pkg/worktrack"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type app struct {
	cfg        *config.AppConfig
	docs       repository.DocumentStore
	work       worktrack.Client
	team       worktrack.TeamContext
	freeForm   *service.FreeFormService
	remote     *service.RemoteService
	capacity   *service.CapacityService
	reconciler *service.CapacityReconciler
}

func main() {
	cliApp := &cli.App{
		Name:  "team-calendar",
		Usage: "Team calendar with capacity reconciliation against the work tracker.",
		Commands: []*cli.Command{
			eventsCommand(),
			adjustCommand(),
			syncCommand(),
			exportCommand(),
			serveCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

func newApp() (*app, error) {
	logrus.Info("Initializing config...")
	cfg := config.GetAppConfig()

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	docs, err := repository.NewGormDocumentStore(db)
	if err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}

	work := worktrack.NewClient(cfg.TrackerBaseURL, cfg.TrackerToken)
	team := worktrack.TeamContext{
		Project:   cfg.Project,
		ProjectID: cfg.ProjectID,
		Team:      cfg.Team,
		TeamID:    cfg.TeamID,
	}

	freeForm := service.NewFreeFormService(docs)
	a := &app{
		cfg:        cfg,
		docs:       docs,
		work:       work,
		team:       team,
		freeForm:   freeForm,
		remote:     service.NewRemoteService(docs, work),
		capacity:   service.NewCapacityService(work),
		reconciler: service.NewCapacityReconciler(work, freeForm),
	}

	a.freeForm.Initialize(team.TeamID, cfg.HostURL)
	a.capacity.Initialize(team, cfg.HostURL)
	a.reconciler.Initialize(team)
	if err := a.remote.Initialize(team, cfg.HostURL); err != nil {
		return nil, fmt.Errorf("initialize remote events: %w", err)
	}
	return a, nil
}

// windowFlags parses --from/--to, defaulting to the current month.
func windowFlags(c *cli.Context) (time.Time, time.Time, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, -1)

	var err error
	if v := c.String("from"); v != "" {
		start, err = time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return start, end, fmt.Errorf("parse --from: %w", err)
		}
	}
	if v := c.String("to"); v != "" {
		end, err = time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return start, end, fmt.Errorf("parse --to: %w", err)
		}
	}
	return start, end, nil
}

func dateRangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "Window start (YYYY-MM-DD), defaults to first of month."},
		&cli.StringFlag{Name: "to", Usage: "Window end (YYYY-MM-DD), defaults to last of month."},
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List calendar events and the sidebar summary for a date window.",
		Flags: dateRangeFlags(),
		Action: func(c *cli.Context) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			start, end, err := windowFlags(c)
			if err != nil {
				return err
			}

			for _, get := range []func(time.Time, time.Time) ([]*models.CalendarEvent, error){
				a.capacity.GetEvents, a.freeForm.GetEvents, a.remote.GetEvents,
			} {
				events, err := get(start, end)
				if err != nil {
					return err
				}
				for _, event := range events {
					fmt.Printf("%s  %-14s %s\n",
						event.StartDate.Format("2006-01-02"), event.DisplayCategory, event.Title)
				}
			}

			aggregator := service.NewSummaryAggregator(a.capacity, a.freeForm, a.remote)
			for _, section := range aggregator.Sections() {
				if len(section.Items) == 0 {
					continue
				}
				fmt.Printf("\n%s\n", section.Title)
				for _, item := range section.Items {
					fmt.Printf("  %-24s %s\n", item.Title, item.SubTitle)
				}
			}
			return nil
		},
	}
}

func adjustCommand() *cli.Command {
	return &cli.Command{
		Name:  "adjust",
		Usage: "Recompute and write per-member capacity for an iteration.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "iteration", Usage: "Iteration ID, defaults to the current one."},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			iterationID, err := a.resolveIteration(c.String("iteration"))
			if err != nil {
				return err
			}

			if err := a.reconciler.PrepareCapacityAdjustments(iterationID); err != nil {
				return err
			}
			adjustments, err := a.reconciler.ApplyCapacityAdjustments()
			if err != nil {
				return err
			}

			var failed int
			for _, adj := range adjustments {
				if adj.Err != nil {
					failed++
					fmt.Printf("%-24s FAILED: %v\n", adj.Member.DisplayName, adj.Err)
					continue
				}
				fmt.Printf("%-24s %.1f days available, %.1f h/day\n",
					adj.Member.DisplayName, adj.AvailableDays, adj.CapacityPerDay)
			}

			a.notify(fmt.Sprintf("Capacity adjusted for %d members (%d failed)",
				len(adjustments)-failed, failed))
			if failed > 0 {
				return fmt.Errorf("%d of %d capacity writes failed", failed, len(adjustments))
			}
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Merge training events into members' days off for an iteration.",
		Flags: append(dateRangeFlags(),
			&cli.StringFlag{Name: "iteration", Usage: "Iteration ID, defaults to the current one."},
		),
		Action: func(c *cli.Context) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			iterationID, err := a.resolveIteration(c.String("iteration"))
			if err != nil {
				return err
			}
			start, end, err := windowFlags(c)
			if err != nil {
				return err
			}
			return a.reconciler.SyncAllCapacity(iterationID, start, end)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the window's events as an iCalendar file.",
		Flags: append(dateRangeFlags(),
			&cli.StringFlag{Name: "out", Value: "calendar.ics", Usage: "Output file path."},
		),
		Action: func(c *cli.Context) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			start, end, err := windowFlags(c)
			if err != nil {
				return err
			}

			var all []*models.CalendarEvent
			for _, get := range []func(time.Time, time.Time) ([]*models.CalendarEvent, error){
				a.capacity.GetEvents, a.freeForm.GetEvents, a.remote.GetEvents,
			} {
				events, err := get(start, end)
				if err != nil {
					return err
				}
				all = append(all, events...)
			}

			out, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer out.Close()

			if err := export.Encode(out, all); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"file":   c.String("out"),
				"events": len(all),
			}).Info("Calendar exported")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the training-to-days-off sync on a schedule until interrupted.",
		Action: func(c *cli.Context) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			runSync := func() {
				iterationID, err := a.resolveIteration("")
				if err != nil {
					logrus.WithError(err).Error("Scheduled sync skipped")
					return
				}
				now := time.Now()
				start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
				if err := a.reconciler.SyncAllCapacity(iterationID, start, start.AddDate(0, 1, -1)); err != nil {
					logrus.WithError(err).Error("Scheduled sync failed")
					a.notify("Scheduled capacity sync failed: " + err.Error())
				}
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(a.cfg.SyncSchedule, runSync); err != nil {
				return fmt.Errorf("parse sync schedule %q: %w", a.cfg.SyncSchedule, err)
			}

			runSync()
			scheduler.Start()
			logrus.WithField("schedule", a.cfg.SyncSchedule).Info("Scheduler started. Press Ctrl+C to stop.")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			<-scheduler.Stop().Done()
			logrus.Info("Scheduler stopped gracefully")
			return nil
		},
	}
}

func (a *app) resolveIteration(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	iteration, err := a.reconciler.CurrentIteration()
	if err != nil {
		return "", err
	}
	return iteration.ID, nil
}

// notify sends a best-effort operational message when a Telegram token and
// chat are configured.
func (a *app) notify(text string) {
	if a.cfg.TelegramToken == "" || a.cfg.NotifyChatID == 0 {
		return
	}
	client, err := telegram.NewClient(a.cfg.TelegramToken)
	if err != nil {
		logrus.WithError(err).Error("Failed to create Telegram client")
		return
	}
	if err := client.Notify(a.cfg.NotifyChatID, text); err != nil {
		logrus.WithError(err).Error("Failed to send notification")
	}
}
