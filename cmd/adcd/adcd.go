package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/espdaq/adcd"
	"github.com/espdaq/adcd/espadc"
	"github.com/espdaq/adcd/internal/adcdb"
	"github.com/oklog/ulid/v2"
)

var githash = "githash not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	// Create directory <path>, if needed
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		err2 := os.MkdirAll(dir, 0775)
		if err2 != nil {
			return "", err2
		}
	}

	// Create an empty file path/filename, if it doesn't exist.
	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets some defaults.
func setupViper() error {
	viper.SetDefault("Verbose", false)
	viper.SetDefault("unit", 1)

	HOME, err := os.UserHomeDir()
	if err != nil { // Handle errors reading the config file
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotAdcd := filepath.Join(HOME, ".adcd")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotAdcd, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/adcd"))
	viper.AddConfigPath(dotAdcd)
	viper.AddConfigPath(".")
	err = viper.ReadInConfig() // Find and read the config file
	if err != nil {            // Handle errors reading the config file
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		msg := fmt.Sprintf("Could not open log file '%s'", pfname)
		panic(msg)
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

func main() {
	adcd.Build.Date = strings.Replace(buildDate, ".", " ", -1)
	adcd.Build.Githash = githash

	printVersion := flag.Bool("version", false, "print version and quit")
	useDB := flag.Bool("db", false, "record activity to the ClickHouse database")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is adcd version %s\n", adcd.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}

	banner := fmt.Sprintf("\nThis is adcd version %s (git commit %s)\n", adcd.Build.Version, githash)
	fmt.Print(banner)

	// Start logging problems to a rotated log file.
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".adcd", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	adcd.ProblemLogger = startLogger(problemname)
	fmt.Printf("Logging problems to %s\n\n", problemname)

	// Find config file, creating it if needed, and read it.
	if err := setupViper(); err != nil {
		panic(err)
	}

	// The only driver this binary links is the simulator; a hardware build
	// swaps it behind the same interface.
	driver := espadc.NewNoHardware()
	unit := espadc.UnitID(viper.GetInt("unit"))

	abort := make(chan struct{})
	captures := make(chan *adcd.Capture, 16)
	go func() {
		if err := adcd.PublishCaptures(captures, abort, adcd.Ports.Captures); err != nil {
			adcd.ProblemLogger.Printf("capture publisher quit: %s", err)
		}
	}()

	activityID := ulid.Make().String()
	db := adcdb.DummyDBConnection()
	if *useDB {
		hostname, _ := os.Hostname()
		db = adcdb.StartDBConnection(&adcdb.ActivityMessage{
			ID:        activityID,
			Hostname:  hostname,
			Githash:   githash,
			Version:   adcd.Build.Version,
			GoVersion: runtime.Version(),
			CPUs:      runtime.NumCPU(),
			Start:     adcd.AdcdStartTime,
		}, abort)
	}

	acquireControl, err := adcd.NewAcquireControl(driver, unit, captures)
	if err != nil {
		log.Fatalf("could not provision %v: %s", unit, err)
	}
	acquireControl.UseDB(db, activityID)
	adcd.RunRPCServer(acquireControl, adcd.Ports.RPC)
	close(abort)
}
