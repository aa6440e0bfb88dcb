// SPDX-License-Identifier: ISC

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"

	"github.com/Daniel-KM/Noid4Php/binder"
	"github.com/Daniel-KM/Noid4Php/dbcreate"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/minter"
	"github.com/Daniel-KM/Noid4Php/queue"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/storage"
	_ "github.com/Daniel-KM/Noid4Php/storage/boltbackend"
	_ "github.com/Daniel-KM/Noid4Php/storage/leveldbbackend"
	_ "github.com/Daniel-KM/Noid4Php/storage/sqlbackend"
	_ "github.com/Daniel-KM/Noid4Php/storage/xmlbackend"
	"github.com/Daniel-KM/Noid4Php/version"
)

// set by the linker: go build -ldflags "-X main.buildVersion=M.N" ./...
var buildVersion = "zero" // do not change this value

func main() {
	defer exitwithstatus.Handler()

	if err := fault.Initialise(); err != nil {
		exitwithstatus.Message("noid: fault.Initialise failed: %s", err)
	}
	defer fault.Finalise()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'f'},
		{Long: "type", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 't'},
		{Long: "agent", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'g'},
		{Long: "genonly", HasArg: getoptions.NO_ARGUMENT, Short: 'G'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s (noid core %s)", program, buildVersion, version.Version)
	}

	if len(options["help"]) > 0 || len(arguments) == 0 {
		usage(program)
		return
	}

	dataDir := "."
	if len(options["file"]) > 0 {
		dataDir = options["file"][0]
	}
	backend := "bolt"
	if len(options["type"]) > 0 {
		backend = options["type"][0]
	}
	contact := ""
	if len(options["agent"]) > 0 {
		contact = options["agent"][0]
	}
	genonly := len(options["genonly"]) > 0

	settings := session.Settings{DataDir: dataDir, DBName: "noid", Backend: backend}

	command := arguments[0]
	rest := arguments[1:]

	switch command {
	case "dbcreate":
		runDbcreate(program, settings, contact, genonly, rest)
	case "mint":
		runMint(program, settings, contact, rest)
	case "hold":
		runHold(program, settings, rest)
	case "release":
		runRelease(program, settings, rest)
	case "queue":
		runQueue(program, settings, rest)
	case "bind":
		runBind(program, settings, contact, rest)
	case "fetch":
		runFetch(program, settings, rest)
	case "dbinfo":
		runDbinfo(program, settings)
	default:
		exitwithstatus.Message("%s: unrecognised command %q", program, command)
	}
}

func usage(program string) {
	fmt.Printf(`usage: %s [options] command [arguments...]

options:
  -h, --help             show this message
  -V, --version          show version information
  -f, --file=DIR         data directory (default: ".")
  -t, --type=BACKEND     storage backend: bolt, leveldb, sql, xml (default: bolt)
  -g, --agent=CONTACT    contact string recorded against mint/bind operations
  -G, --genonly          dbcreate: restrict binding and queueing to ids conforming to the template

commands:
  dbcreate TEMPLATE TERM [NAAN NAA SUBNAA]
  mint COUNT
  hold ID
  release ID
  queue WHEN ID...
  bind HOW ID ELEM [VALUE]
  fetch ID [ELEM]
  dbinfo
`, program)
}

func openSession(program string, settings session.Settings) *session.Session {
	s, err := session.Open(settings, storage.ModeReadWrite)
	if err != nil {
		exitwithstatus.Message("%s: open failed: %s", program, err)
	}
	return s
}

func runDbcreate(program string, settings session.Settings, contact string, genonly bool, args []string) {
	if contact == "" || len(args) < 2 {
		exitwithstatus.Message("%s: dbcreate requires -g CONTACT and TEMPLATE TERM [NAAN NAA SUBNAA]", program)
	}
	term, err := dbcreate.ParseTerm(args[1])
	if err != nil {
		exitwithstatus.Message("%s: %s", program, err)
	}
	req := dbcreate.Request{
		Settings: settings,
		Contact:  contact,
		Template: args[0],
		Term:     term,
		Genonly:  genonly,
	}
	if len(args) >= 5 {
		req.Naan, req.Naa, req.Subnaa = args[2], args[3], args[4]
	}
	report, err := dbcreate.Create(req)
	if err != nil {
		exitwithstatus.Message("%s: dbcreate failed: %s", program, err)
	}
	fmt.Print(report)
}

func runMint(program string, settings session.Settings, contact string, args []string) {
	if len(args) < 1 {
		exitwithstatus.Message("%s: mint requires COUNT", program)
	}
	count64, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || count64 < 1 {
		exitwithstatus.Message("%s: invalid count %q", program, args[0])
	}

	s := openSession(program, settings)
	defer s.Close()

	ids, err := minter.MintMultiple(s, contact, int(count64))
	if err != nil {
		exitwithstatus.Message("%s: mint failed: %s (%s)", program, err, s.ErrMsg())
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}

func runHold(program string, settings session.Settings, args []string) {
	if len(args) != 1 {
		exitwithstatus.Message("%s: hold requires ID", program)
	}
	s := openSession(program, settings)
	defer s.Close()

	if err := queue.Hold(s, args[0]); err != nil {
		exitwithstatus.Message("%s: hold failed: %s (%s)", program, err, s.ErrMsg())
	}
}

func runRelease(program string, settings session.Settings, args []string) {
	if len(args) != 1 {
		exitwithstatus.Message("%s: release requires ID", program)
	}
	s := openSession(program, settings)
	defer s.Close()

	if err := queue.Release(s, args[0]); err != nil {
		exitwithstatus.Message("%s: release failed: %s (%s)", program, err, s.ErrMsg())
	}
}

func runQueue(program string, settings session.Settings, args []string) {
	if len(args) < 2 {
		exitwithstatus.Message("%s: queue requires WHEN ID...", program)
	}
	s := openSession(program, settings)
	defer s.Close()

	if err := queue.Enqueue(s, args[0], args[1:]); err != nil {
		exitwithstatus.Message("%s: queue failed: %s (%s)", program, err, s.ErrMsg())
	}
}

func runBind(program string, settings session.Settings, contact string, args []string) {
	if len(args) < 3 {
		exitwithstatus.Message("%s: bind requires HOW ID ELEM [VALUE]", program)
	}
	how, err := binder.ParseHow(args[0])
	if err != nil {
		exitwithstatus.Message("%s: %s", program, err)
	}
	value := ""
	if len(args) >= 4 {
		value = strings.Join(args[3:], " ")
	}

	s := openSession(program, settings)
	defer s.Close()

	entry := binder.Entry{ID: args[1], Elem: args[2], Value: value, How: how, Validate: true}
	result, err := binder.Bind(s, contact, entry)
	if err != nil {
		exitwithstatus.Message("%s: bind failed: %s (%s)", program, err, s.ErrMsg())
	}
	fmt.Printf("%s\t%s\t%s\n", result.ID, result.Elem, result.Value)
}

func runFetch(program string, settings session.Settings, args []string) {
	if len(args) < 1 {
		exitwithstatus.Message("%s: fetch requires ID [ELEM]", program)
	}
	elem := ""
	if len(args) >= 2 {
		elem = args[1]
	}

	s := openSession(program, settings)
	defer s.Close()

	result, err := binder.Fetch(s, args[0], elem)
	if err != nil {
		exitwithstatus.Message("%s: fetch failed: %s (%s)", program, err, s.ErrMsg())
	}
	fmt.Print(result.Render(false))
}

func runDbinfo(program string, settings session.Settings) {
	s := openSession(program, settings)
	defer s.Close()

	fmt.Printf("active sessions in this process: %d\n", session.ActiveSessionCount())

	for _, key := range []string{"R/template", "R/firstpart", "R/total", "R/oacounter", "R/held", "R/queued", "R/pregenerated", "R/properties"} {
		v, ok, err := s.GetString(key)
		if err != nil {
			exitwithstatus.Message("%s: dbinfo failed: %s", program, err)
		}
		if !ok {
			continue
		}
		fmt.Printf("%s: %s\n", key, v)
	}
}
