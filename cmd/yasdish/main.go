// Command yasdish is an interactive shell over the yasdi driver manager and
// device master.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

func main() {
	iniFile := flag.String("ini", "./yasdi.ini", "yasdi ini file")
	driverLib := flag.String("driver-lib", "", "path to libyasdi")
	masterLib := flag.String("master-lib", "", "path to libyasdimaster")
	simulate := flag.Bool("simulate", false, "use an in-memory bus")
	flag.Parse()

	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()

	var drivers *yasdi.DriverManager
	var master *yasdi.DeviceMaster
	if *simulate {
		d, m := yasdi.NewTestLibraries()
		drivers, master = yasdi.NewDriverManager(d), yasdi.NewDeviceMaster(m)
	} else {
		var err error
		if drivers, err = yasdi.OpenDriverManager(*driverLib); err != nil {
			logger.Fatal("could not load driver library", zap.Error(err))
		}
		if master, err = yasdi.OpenDeviceMaster(*masterLib); err != nil {
			logger.Fatal("could not load master library", zap.Error(err))
		}
	}
	defer drivers.Close()
	defer master.Close()

	n, err := master.Initialize(*iniFile)
	if err != nil {
		logger.Fatal("could not initialize yasdi", zap.String("ini", *iniFile), zap.Error(err))
	}
	defer master.Shutdown()
	logger.Info("yasdi initialized", zap.Uint32("drivers", n))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "yasdi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		HistoryFile:     os.ExpandEnv("$HOME/.yasdish_history"),
		AutoComplete:    completer,
	})
	if err != nil {
		logger.Fatal("could not create readline", zap.Error(err))
	}
	defer rl.Close()

	sh := &shell{drivers: drivers, master: master, out: rl.Stdout()}
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err != nil {
			return
		}
		if !sh.exec(line) {
			fmt.Fprintln(rl.Stdout(), "bye")
			return
		}
	}
}
