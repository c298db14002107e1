// seehuhn.de/go/pdr - convert e-reader PDR annotations into PDF annotations
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Pdr-annotate copies the annotations which an e-reader stored in a PDR
// file into the corresponding PDF document.
//
// Usage:
//
//	pdr-annotate [flags] -i input [-o output]
//
// The input can be a single PDF file or a directory.  For a directory,
// every PDF file which has a PDR file next to it is converted.  Without
// -o the input files are modified in place.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/xdg-go/stringprep"
	"golang.org/x/term"

	"seehuhn.de/go/pdr"
	"seehuhn.de/go/pdr/annotate"
	"seehuhn.de/go/pdr/batch"
	"seehuhn.de/go/pdr/config"
	"seehuhn.de/go/pdr/tools/internal/buildinfo"
)

type settings []string

func (s *settings) String() string { return fmt.Sprint(*s) }

func (s *settings) Set(kv string) error {
	*s = append(*s, kv)
	return nil
}

func main() {
	cfgFile := flag.String("c", "", "read configuration from `file`")
	var overrides settings
	flag.Var(&overrides, "set", "override a configuration value, as `key=value`")
	workers := flag.Int("j", 0, "number of documents converted in parallel")
	force := flag.Bool("f", false, "overwrite existing output files")
	verbose := flag.Bool("v", false, "show warnings and every placed annotation")
	debug := flag.Bool("debug", false, "write a decoder trace to <input>.log")
	showVersion := flag.Bool("version", false, "print version information and exit")
	showConfig := flag.Bool("show-config", false, "print the effective configuration and exit")
	input := flag.String("i", "", "input PDF file or directory")
	output := flag.String("o", "", "output PDF file or directory")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("pdr-annotate: ")

	if *showVersion {
		fmt.Println(buildinfo.Version("pdr-annotate"))
		return
	}
	if (*input == "" && !*showConfig) || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgFile, overrides)
	if err != nil {
		log.Fatal(err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *debug {
		cfg.DumpDebugFile = true
	}
	if *showConfig {
		data, err := cfg.Marshal()
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(data)
		return
	}
	for _, msg := range cfg.Warnings() {
		log.Print("warning: ", msg)
	}

	tasks, err := batch.Collect(*input, *output)
	if err != nil {
		log.Fatal(err)
	}
	if len(tasks) == 0 {
		log.Print("no PDF files with PDR annotations found")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &converter{
		cfg:     cfg,
		styles:  cfg.Styles(),
		force:   *force,
		verbose: *verbose,
	}
	failed := 0
	for res := range batch.Run(ctx, tasks, cfg.Workers, c.convert) {
		switch res.State {
		case batch.Finished:
			fmt.Printf("%s: done\n", res.Task)
		case batch.Skipped:
			fmt.Printf("%s: skipped\n", res.Task)
		default:
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Task, res.Err)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func loadConfig(fname string, overrides []string) (*config.Config, error) {
	cfg := config.Default()
	if fname != "" {
		var err error
		cfg, err = config.Load(fname)
		if err != nil {
			return nil, err
		}
	}
	for _, kv := range overrides {
		err := cfg.SetString(kv)
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

type converter struct {
	cfg     *config.Config
	styles  pdr.Styles
	force   bool
	verbose bool

	// promptMu serialises password prompts of concurrent conversions.
	promptMu sync.Mutex
}

var errOutputExists = errors.New("output file exists (use -f to overwrite)")

func (c *converter) convert(ctx context.Context, task batch.Task) error {
	if task.Output != task.Input && !c.force {
		if _, err := os.Stat(task.Output); err == nil {
			return errOutputExists
		}
	}

	doc, err := c.decode(task.Input)
	if errors.Is(err, pdr.ErrNoSidecar) {
		log.Printf("%s: %v", task.Input, err)
		return nil
	}
	var truncated *pdr.TruncatedError
	if errors.As(err, &truncated) {
		log.Printf("%s: %v, using the %d complete records", task.Input, err,
			len(doc.Bookmarks)+len(doc.Markings)+len(doc.Comments))
	} else if err != nil {
		return err
	}
	if c.verbose {
		for _, w := range doc.Warnings {
			log.Printf("%s: warning: %s", task.Input, w)
		}
	}

	if c.cfg.MergeComments {
		n := pdr.Merge(doc, pdr.EndPointMatch)
		if c.verbose && n > 0 {
			log.Printf("%s: merged %d comments into markings", task.Input, n)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	opt := &annotate.Options{
		ReadPassword: c.readPassword(task.Input),
	}
	rep, err := annotate.Convert(task.Input, task.Output, doc, opt)
	if err != nil {
		return err
	}

	if c.verbose {
		for _, res := range rep.Results {
			p := res.Placement
			log.Printf("%s: page %d: %s %s", task.Input, p.Page+1, p.Kind, res.State)
		}
	}
	for _, res := range rep.Failed() {
		log.Printf("%s: page %d: %v", task.Input, res.Placement.Page+1, res.Err)
	}
	for _, a := range rep.Pending {
		log.Printf("%s: %s on page %d: no such page in a %d page document",
			task.Input, a.Kind(), a.PageIndex()+1, rep.Pages)
	}
	if n := len(rep.Failed()); n > 0 {
		return fmt.Errorf("%d of %d annotations could not be added", n, len(rep.Results))
	}
	return nil
}

// decode reads the PDR file for the given PDF file.  If configured, the
// decoder trace is written to a log file next to the PDF file.
func (c *converter) decode(pdfPath string) (*pdr.File, error) {
	opt := &pdr.DecodeOptions{Styles: &c.styles}
	if !c.cfg.DumpDebugFile {
		return pdr.ReadSidecar(pdfPath, opt)
	}

	logName := pdfPath + ".log"
	fd, err := os.Create(logName)
	if err != nil {
		log.Printf("%s: %v", pdfPath, err)
		return pdr.ReadSidecar(pdfPath, opt)
	}
	buf := bufio.NewWriter(fd)
	opt.Trace = buf
	doc, err := pdr.ReadSidecar(pdfPath, opt)

	// Problems with the trace file are reported, the conversion goes on.
	traceErr := buf.Flush()
	if closeErr := fd.Close(); traceErr == nil {
		traceErr = closeErr
	}
	if traceErr != nil {
		log.Printf("%s: writing %s: %v", pdfPath, logName, traceErr)
	}
	return doc, err
}

// readPassword returns a function which asks the user for the password
// of an encrypted document.
func (c *converter) readPassword(fname string) func([]byte, int) string {
	return func(_ []byte, try int) string {
		if !term.IsTerminal(int(syscall.Stdin)) || try >= 3 {
			return ""
		}

		c.promptMu.Lock()
		defer c.promptMu.Unlock()

		fmt.Fprintf(os.Stderr, "password for %s: ", fname)
		passwd, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		prepped, err := stringprep.SASLprep.Prepare(string(passwd))
		if err != nil {
			return string(passwd)
		}
		return prepped
	}
}
