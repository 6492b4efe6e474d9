// Package main provides a CLI tool to export the purchase ledger as JSON and
// to import a previous export back into a database.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/pixelgrid-backend/db"
	"go.vocdoni.io/dvote/log"
)

// ledger is the part of the storage used by the tool.
type ledger interface {
	String() string
	Import(jsonData []byte) error
}

func main() {
	flag.StringP("mongoURL", "m", "", "MongoDB connection URL (required)")
	flag.StringP("mongoDB", "d", "pixelgrid", "MongoDB database name")
	flag.StringP("export", "e", "", "write the ledger to this file, - for stdout")
	flag.StringP("import", "i", "", "upsert the purchases of an export file")
	flag.Parse()

	viper.SetEnvPrefix("PIXELGRID")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		log.Fatalf("could not bind flags: %v", err)
	}
	viper.AutomaticEnv()

	mongoURL := viper.GetString("mongoURL")
	mongoDB := viper.GetString("mongoDB")
	exportFile := viper.GetString("export")
	importFile := viper.GetString("import")
	log.Init("info", "stderr", nil)

	if mongoURL == "" {
		log.Fatal("mongoURL is required")
	}
	if (exportFile == "") == (importFile == "") {
		log.Fatal("exactly one of export or import is required")
	}

	database, err := db.New(mongoURL, mongoDB)
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer database.Close()

	if importFile != "" {
		if err := importLedger(database, importFile); err != nil {
			log.Fatalf("could not import %s: %v", importFile, err)
		}
		return
	}
	if exportFile == "-" {
		if err := exportLedger(database, os.Stdout); err != nil {
			log.Fatalf("could not export the ledger: %v", err)
		}
		return
	}
	out, err := os.Create(exportFile)
	if err != nil {
		log.Fatalf("could not create %s: %v", exportFile, err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warnw("could not close export file", "error", err)
		}
	}()
	if err := exportLedger(database, out); err != nil {
		log.Fatalf("could not export the ledger: %v", err)
	}
}

func exportLedger(l ledger, out io.Writer) error {
	_, err := fmt.Fprintln(out, l.String())
	return err
}

func importLedger(l ledger, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return l.Import(data)
}
