// Command yasdidemon brings every driver online, detects the configured
// number of devices and prints their energy channels every two seconds.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi/compat"

	"go.uber.org/zap"
)

var demoChannels = []string{"Pac", "E-Tag", "E-Total"}

func main() {
	iniFile := flag.String("ini", "./yasdi.ini", "yasdi ini file")
	driverLib := flag.String("driver-lib", "", "path to libyasdi")
	masterLib := flag.String("master-lib", "", "path to libyasdimaster")
	devices := flag.Uint("devices", 1, "devices to detect")
	simulate := flag.Bool("simulate", false, "use an in-memory bus")
	flag.Parse()

	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()

	dm, master, err := open(*driverLib, *masterLib, *simulate)
	if err != nil {
		logger.Fatal("could not load yasdi", zap.Error(err))
	}
	drivers := compat.NewDriverManager(dm)
	devMaster := compat.NewDeviceMaster(master)
	defer drivers.Close()
	defer devMaster.Close()

	if n := devMaster.Initialize(*iniFile); n == 0 {
		logger.Fatal("no drivers configured", zap.String("ini", *iniFile))
	}
	defer devMaster.Shutdown()

	handles := drivers.ListDrivers()
	for _, h := range handles {
		if !drivers.SetOnline(h) {
			logger.Warn("driver did not go online", zap.String("driver", drivers.DriverName(h)))
		}
	}
	defer func() {
		for _, h := range handles {
			drivers.SetOffline(h)
		}
	}()

	logger.Info("detecting devices", zap.Uint("count", *devices))
	if !devMaster.DoMasterCommand(yasdi.CmdDetection, uint32(*devices), 0) {
		logger.Warn("not all devices found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		for _, dev := range devMaster.ListDeviceHandles() {
			printDevice(devMaster, dev)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func open(driverLib, masterLib string, simulate bool) (*yasdi.DriverManager, *yasdi.DeviceMaster, error) {
	if simulate {
		d, m := yasdi.NewTestLibraries()
		return yasdi.NewDriverManager(d), yasdi.NewDeviceMaster(m), nil
	}
	dm, err := yasdi.OpenDriverManager(driverLib)
	if err != nil {
		return nil, nil, err
	}
	master, err := yasdi.OpenDeviceMaster(masterLib)
	if err != nil {
		dm.Close()
		return nil, nil, err
	}
	return dm, master, nil
}

func printDevice(m *compat.DeviceMaster, dev yasdi.DeviceHandle) {
	fmt.Println(m.DeviceName(dev))
	for _, name := range demoChannels {
		ch, _ := m.FindChannelByName(dev, name)
		if ch == yasdi.InvalidHandle {
			continue
		}
		value := m.ChannelValue(ch, dev, 5)
		ts := "-"
		if secs := m.ChannelValueTimestamp(ch, dev); secs != nil {
			ts = time.Unix(*secs, 0).Format(time.DateTime)
		}
		if math.IsNaN(value) {
			fmt.Fprintf(os.Stderr, "%s: no value\n", name)
			continue
		}
		fmt.Printf("%s;%s;%s;%g\n", m.ChannelName(ch), m.ChannelUnit(ch), ts, value)
	}
}
