package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klokku/booking/internal/utils"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host       string     `koanf:"host"`
	Listen     string     `koanf:"listen"`
	Database   Database   `koanf:"db"`
	Scheduling Scheduling `koanf:"scheduling"`
	Lock       Lock       `koanf:"lock"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Scheduling struct {
	// Timezone is the IANA zone in which day-of-week and time-of-day are derived.
	Timezone                string        `koanf:"timezone"`
	BusinessHours           BusinessHours `koanf:"businesshours"`
	SlotStepMinutes         int           `koanf:"slotstepminutes"`
	RecurrenceHorizonMonths int           `koanf:"recurrencehorizonmonths"`
}

// BusinessHours bounds the alternative-slot search, "HH:MM[:SS]".
type BusinessHours struct {
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

type LockBackend string

const (
	LockBackendLocal LockBackend = "local"
	LockBackendRedis LockBackend = "redis"
)

type Lock struct {
	Backend    LockBackend `koanf:"backend"`
	TTLSeconds int         `koanf:"ttlseconds"`
	Redis      Redis       `koanf:"redis"`
}

type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

func defaults() Application {
	return Application{
		Host:   "http://localhost:8181",
		Listen: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "booking",
			Pass:   "",
			Name:   "booking",
			Schema: "booking",
		},
		Scheduling: Scheduling{
			Timezone: "UTC",
			BusinessHours: BusinessHours{
				Start: "08:00:00",
				End:   "18:00:00",
			},
			SlotStepMinutes:         30,
			RecurrenceHorizonMonths: 6,
		},
		Lock: Lock{
			Backend:    LockBackendLocal,
			TTLSeconds: 10,
			Redis: Redis{
				Addr: "localhost:6379",
			},
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "BOOKING_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "BOOKING_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if err := app.Scheduling.validate(); err != nil {
		return Application{}, err
	}

	return app, nil
}

func (s Scheduling) validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}
	start, end, err := s.BusinessWindow()
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("business hours start %s must be before end %s", start, end)
	}
	if s.SlotStepMinutes <= 0 {
		return fmt.Errorf("slot step must be positive, got %d", s.SlotStepMinutes)
	}
	if s.RecurrenceHorizonMonths <= 0 {
		return fmt.Errorf("recurrence horizon must be positive, got %d", s.RecurrenceHorizonMonths)
	}
	return nil
}

func (s Scheduling) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

func (s Scheduling) BusinessWindow() (utils.TimeOfDay, utils.TimeOfDay, error) {
	start, err := utils.ParseTimeOfDay(s.BusinessHours.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid business hours start: %w", err)
	}
	end, err := utils.ParseTimeOfDay(s.BusinessHours.End)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid business hours end: %w", err)
	}
	return start, end, nil
}

func (s Scheduling) SlotStep() time.Duration {
	return time.Duration(s.SlotStepMinutes) * time.Minute
}

func (l Lock) TTL() time.Duration {
	return time.Duration(l.TTLSeconds) * time.Second
}
