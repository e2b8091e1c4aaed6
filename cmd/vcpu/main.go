// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"github.com/ezrec/vcpu/dump"
	"github.com/ezrec/vcpu/image"
	"github.com/ezrec/vcpu/machine"
	"github.com/ezrec/vcpu/sysio"
	"github.com/ezrec/vcpu/translate"
)

type options struct {
	file       string
	count      int
	limit      int
	dump       bool
	concurrent bool
}

func run(ctx context.Context, logger *zap.Logger, opt options) (err error) {
	console := &sysio.Console{Input: os.Stdin, Output: os.Stdout}

	m, err := machine.Start(opt.count,
		machine.WithLogger(logger),
		machine.WithSyscall(console),
		machine.WithStepLimit(opt.limit),
	)
	if err != nil {
		return
	}
	defer m.Close()

	logctx.Infof(ctx, "loading program %v", opt.file)
	img, err := image.LoadFile(opt.file, m.Defines(), sysio.Defines())
	if err != nil {
		return
	}

	err = m.LoadProgram(img.Data)
	if err != nil {
		return
	}

	if opt.dump {
		err = dump.Machine(os.Stdout, m.Snapshot())
		if err != nil {
			return
		}
	}

	if opt.concurrent {
		err = m.RunConcurrent(ctx)
	} else {
		err = m.Run(ctx)
	}

	var fault *machine.FaultError
	if errors.As(err, &fault) {
		line := img.Line(fault.Ip)
		if line != 0 {
			logctx.Error(ctx, "fault source",
				zap.String("file", opt.file),
				zap.Int("line", line),
				zap.String("source", img.Source(fault.Ip)),
			)
		}
	}

	if opt.dump {
		_ = dump.Machine(os.Stdout, m.Snapshot())
	}

	return
}

func main() {
	var opt options
	var verbose bool

	flag.StringVar(&opt.file, "f", "prog.txt", "Program image; .asm and .s files are assembled")
	flag.IntVar(&opt.count, "n", 1, "Number of processing units")
	flag.IntVar(&opt.limit, "s", 0, "Step limit, 0 for none")
	flag.BoolVar(&opt.dump, "d", false, "Dump machine state before and after the run")
	flag.BoolVar(&opt.concurrent, "c", false, "Run processing units concurrently")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	config := zap.NewDevelopmentConfig()
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	logger.Debug("locale", zap.Stringer("language", translate.Language()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = logctx.NewContext(ctx, logger)

	err = run(ctx, logger, opt)
	cancel()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}
