package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-python/gpython/py"
	"github.com/go-python/gpython/repl"
	"github.com/go-python/gpython/repl/cli"

	"github.com/fine-structures/khova.SDK/pykhova"
	_ "github.com/go-python/gpython/stdlib"
)

const replBanner = "import _khova\nprint('_khova', _khova.LIB_VERSION, ' MAX_CROSSINGS =', _khova.MAX_CROSSINGS)\n"

func runGpython(pathname string) error {
	ctx := py.NewContext(py.DefaultContextOpts())

	var err error
	if len(pathname) == 0 {
		replCtx := repl.New(ctx)

		var startupDir string
		startupDir, err = os.MkdirTemp("", "khova")
		if err == nil {
			startup := filepath.Join(startupDir, "_REPL_startup.py")
			if err = os.WriteFile(startup, []byte(replBanner), 0600); err == nil {
				_, err = pykhova.RunFile(ctx, startup, replCtx.Module)
			}
			os.RemoveAll(startupDir)
		}
		if err == nil {
			cli.RunREPL(replCtx)
		}

	} else {
		startTime := time.Now()
		fmt.Printf("<<<>>>   executing '%s'   <<<>>>\n", pathname)

		_, err = pykhova.RunFile(ctx, pathname, nil)

		if err == nil {
			fmt.Printf("<<<>>>   execution complete: %v   <<<>>>\n", time.Since(startTime))
		}
	}

	ctx.Close()
	<-ctx.Done()

	if err != nil {
		py.TracebackDump(err)
	}
	return err
}
