package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type AppConfig struct {
	DatabasePath   string
	TrackerBaseURL string
	TrackerToken   string
	Project        string
	ProjectID      string
	Team           string
	TeamID         string
	HostURL        string
	TelegramToken  string
	NotifyChatID   int64
	SyncSchedule   string
}

var instance *AppConfig
var once sync.Once

func GetAppConfig() *AppConfig {
	once.Do(func() {
		instance = &AppConfig{}

		if err := godotenv.Load(); err != nil {
			logrus.Debugf("no .env file loaded: %s", err.Error())
		}

		instance.DatabasePath = getEnv("CALENDAR_DB_PATH", "calendar.db")

		instance.TrackerBaseURL = getEnv("TRACKER_BASE_URL", "")
		if instance.TrackerBaseURL == "" {
			logrus.Fatal("could not get work tracker base url")
		}

		instance.TrackerToken = getEnv("TRACKER_TOKEN", "")
		if instance.TrackerToken == "" {
			logrus.Fatal("could not get work tracker access token")
		}

		instance.Project = getEnv("TRACKER_PROJECT", "")
		instance.ProjectID = getEnv("TRACKER_PROJECT_ID", instance.Project)
		instance.Team = getEnv("TRACKER_TEAM", "")
		instance.TeamID = getEnv("TRACKER_TEAM_ID", instance.Team)
		if instance.Project == "" || instance.Team == "" {
			logrus.Fatal("could not get project/team identity")
		}

		instance.HostURL = getEnv("HOST_URL", instance.TrackerBaseURL)

		instance.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
		instance.NotifyChatID = getEnvAsInt("NOTIFY_CHAT_ID", 0)

		instance.SyncSchedule = getEnv("SYNC_SCHEDULE", "@every 30m")
	})

	return instance
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}
