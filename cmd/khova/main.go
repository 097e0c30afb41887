package main

import (
	"flag"
	"os"
	"strconv"
	"sync"

	"github.com/plan-systems/klog"
)

var (
	gLogFlags *flag.FlagSet
	gLogInit  sync.Once
)

func initLogging() {
	gLogInit.Do(func() {
		gLogFlags = flag.NewFlagSet("", flag.ContinueOnError)
		klog.InitFlags(gLogFlags)
		gLogFlags.Set("logtostderr", "true")
		gLogFlags.Set("v", "1")
		klog.SetFormatter(&klog.FmtConstWidth{
			FileNameCharWidth: 16,
			UseColor:          true,
		})
	})
}

func setVerbosity(level int) {
	initLogging()
	gLogFlags.Set("v", strconv.Itoa(level))
}

func main() {
	initLogging()

	err := newRootCmd().Execute()
	klog.Flush()

	if err != nil {
		os.Exit(1)
	}
}
