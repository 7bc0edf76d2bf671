// Command khidma-admin runs one-off maintenance tasks: database migrations,
// password hashing for AUTH_PASSWORD_HASH and CSV imports.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"khidma/internal/auth"
	"khidma/internal/cli"
	"khidma/internal/config"
	"khidma/internal/importer"
	applog "khidma/internal/log"
	"khidma/internal/storage"
)

const usage = `usage: khidma-admin <command> [flags]

commands:
  migrate                      apply pending database migrations
  hash-password [password]     print a bcrypt hash for AUTH_PASSWORD_HASH (reads stdin when omitted)
  import <kind> [flags] <file> import a CSV file; kind is collections, sponsors or cases
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("khidma-admin", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(logger)
	case "hash-password":
		err = runHashPassword(os.Args[2:])
	case "import":
		err = runImport(logger, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runMigrate(logger *applog.Logger) error {
	cfg := config.Load()
	if err := storage.RunMigrations(storage.OptionsFromConfig(cfg)); err != nil {
		return err
	}
	logger.Info("Migrations applied", "backend", cfg.DataBackend)
	return nil
}

func runHashPassword(args []string) error {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			password = strings.TrimSpace(sc.Text())
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runImport(logger *applog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing import kind\n%s", usage)
	}
	kind := args[0]

	fs := flag.NewFlagSet("import "+kind, flag.ContinueOnError)
	name := fs.String("name", "الاسم", "sponsor name column")
	amount := fs.String("amount", "المبلغ", "amount column (collections)")
	month := fs.String("month", "الشهر", "month column, YYYY-MM (collections)")
	phone := fs.String("phone", "", "phone column (sponsors)")
	child := fs.String("child", "اسم الطفل", "child name column (cases)")
	guardian := fs.String("guardian", "", "guardian name column (cases)")
	area := fs.String("area", "المنطقة", "area name column (cases)")
	fixed := fs.String("fixed", "", "fixed amount column (cases)")
	sponsor := fs.String("sponsor", "", "sponsor name column (cases)")
	dryRun := fs.Bool("dry-run", false, "print the collection preview without inserting")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one file, got %d", fs.NArg())
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	table, err := importer.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repo, err := storage.Open(ctx, storage.OptionsFromConfig(config.Load()))
	if err != nil {
		return err
	}
	defer repo.Close()
	im := importer.New(repo)

	var res importer.Result
	switch kind {
	case "collections":
		m := importer.CollectionMapping{Name: *name, Amount: *amount, Month: *month}
		if *dryRun {
			rows, err := im.PreviewCollections(ctx, table, m)
			if err != nil {
				return err
			}
			for _, r := range rows {
				status := "ok"
				if !r.Importable() {
					status = r.Reason
				}
				fmt.Printf("%d\t%s\t%s\t%s\t%s\n", r.Line, r.Name, r.Amount.String(), r.Month.String(), status)
			}
			return nil
		}
		res, err = im.ImportCollections(ctx, table, m)
	case "sponsors":
		res, err = im.ImportSponsors(ctx, table, importer.SponsorMapping{Name: *name, Phone: *phone})
	case "cases":
		res, err = im.ImportCases(ctx, table, importer.CaseMapping{
			Child: *child, Guardian: *guardian, Area: *area, Fixed: *fixed, Sponsor: *sponsor,
		})
	default:
		return fmt.Errorf("unknown import kind %q", kind)
	}
	if err != nil {
		return err
	}

	for _, s := range res.Skips {
		fmt.Printf("skipped line %d\t%s\t%s\n", s.Line, s.Name, s.Reason)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning line %d\t%s\t%s\n", w.Line, w.Name, w.Reason)
	}
	logger.Info("Import finished", "kind", kind, "file", path,
		"rows", len(table.Rows), "inserted", res.Inserted, "skipped", res.Skipped)
	return nil
}
