package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/chzyer/readline"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("drivers"),
	readline.PcItem("online"),
	readline.PcItem("offline"),
	readline.PcItem("detect"),
	readline.PcItem("devices"),
	readline.PcItem("channels"),
	readline.PcItem("find"),
	readline.PcItem("value"),
	readline.PcItem("set"),
	readline.PcItem("status"),
	readline.PcItem("range"),
	readline.PcItem("state"),
	readline.PcItem("reset"),
	readline.PcItem("quit"),
)

const help = `commands:
  drivers                      list drivers
  online <driver>              bring a driver online
  offline <driver>             take a driver offline
  detect <count>               detect devices
  devices                      list detected devices
  channels <dev> [group]       list channels (spot, param, test, all)
  find <dev> <name>            find a channel handle
  value <dev> <name> [age]     read a channel value
  set <dev> <name> <value>     write a parameter channel
  status <dev> <name>          list status texts
  range <dev> <name>           show the value range
  state                        master state
  reset                        reset the master
  quit                         exit`

type shell struct {
	drivers *yasdi.DriverManager
	master  *yasdi.DeviceMaster
	out     io.Writer
}

// exec runs one command line and reports whether the shell should go on.
func (s *shell) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	var err error
	switch cmd {
	case "quit", "exit":
		return false
	case "help", "?":
		fmt.Fprintln(s.out, help)
	case "drivers":
		s.listDrivers()
	case "online", "offline":
		err = s.toggleDriver(cmd == "online", args)
	case "detect":
		err = s.detect(args)
	case "devices":
		s.listDevices()
	case "channels":
		err = s.listChannels(args)
	case "find":
		err = s.find(args)
	case "value":
		err = s.value(args)
	case "set":
		err = s.set(args)
	case "status":
		err = s.status(args)
	case "range":
		err = s.valueRange(args)
	case "state":
		fmt.Fprintln(s.out, s.master.MasterState())
	case "reset":
		err = s.master.Reset()
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return true
}

func (s *shell) listDrivers() {
	for _, h := range s.drivers.Drivers() {
		name, err := s.drivers.DriverName(h)
		if err != nil {
			name = err.Error()
		}
		fmt.Fprintf(s.out, "%d\t%s\n", h, name)
	}
}

func (s *shell) toggleDriver(online bool, args []string) error {
	h, err := uintArg(args, 0, "driver")
	if err != nil {
		return err
	}
	if online {
		return s.drivers.SetOnline(yasdi.DriverHandle(h))
	}
	return s.drivers.SetOffline(yasdi.DriverHandle(h))
}

func (s *shell) detect(args []string) error {
	n, err := uintArg(args, 0, "count")
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.master.DetectDevices(n)
	fmt.Fprintf(s.out, "%d devices after %s\n", len(s.master.DeviceHandles()), time.Since(start).Round(time.Millisecond))
	return err
}

func (s *shell) listDevices() {
	for _, dev := range s.master.DeviceHandles() {
		name, _ := s.master.DeviceName(dev)
		typ, _ := s.master.DeviceType(dev)
		sn, _ := s.master.DeviceSerialNumber(dev)
		fmt.Fprintf(s.out, "%d\t%s\t%s\t%d\n", dev, name, typ, sn)
	}
}

func (s *shell) listChannels(args []string) error {
	dev, err := uintArg(args, 0, "dev")
	if err != nil {
		return err
	}
	group := yasdi.SpotChannels
	if len(args) > 1 {
		if group, err = yasdi.ParseChannelGroup(args[1]); err != nil {
			return err
		}
	}
	for _, ch := range s.master.ChannelHandles(yasdi.DeviceHandle(dev), group) {
		name, _ := s.master.ChannelName(ch)
		unit, _ := s.master.ChannelUnit(ch)
		fmt.Fprintf(s.out, "%d\t%s\t%s\n", ch, name, unit)
	}
	return nil
}

func (s *shell) channel(args []string) (yasdi.DeviceHandle, yasdi.ChannelHandle, error) {
	dev, err := uintArg(args, 0, "dev")
	if err != nil {
		return 0, 0, err
	}
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("missing channel name")
	}
	ch, err := s.master.FindChannel(yasdi.DeviceHandle(dev), args[1])
	return yasdi.DeviceHandle(dev), ch, err
}

func (s *shell) find(args []string) error {
	_, ch, err := s.channel(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, ch)
	return nil
}

func (s *shell) value(args []string) error {
	dev, ch, err := s.channel(args)
	if err != nil {
		return err
	}
	age := uint32(5)
	if len(args) > 2 {
		if age, err = uintArg(args, 2, "age"); err != nil {
			return err
		}
	}
	v, err := s.master.ChannelValue(ch, dev, age)
	if err != nil {
		return err
	}
	unit, _ := s.master.ChannelUnit(ch)
	ts := "-"
	if t, ok := s.master.ChannelTimestamp(ch, dev); ok {
		ts = t.Format(time.DateTime)
	}
	fmt.Fprintf(s.out, "%g %s (%s)\n", v, unit, ts)
	return nil
}

func (s *shell) set(args []string) error {
	dev, ch, err := s.channel(args)
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[2])
	}
	if err := s.master.SetChannelValue(ch, dev, v); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *shell) status(args []string) error {
	_, ch, err := s.channel(args)
	if err != nil {
		return err
	}
	texts, err := s.master.StatusTexts(ch)
	if err != nil {
		return err
	}
	for i, t := range texts {
		fmt.Fprintf(s.out, "%d\t%s\n", i, t)
	}
	return nil
}

func (s *shell) valueRange(args []string) error {
	_, ch, err := s.channel(args)
	if err != nil {
		return err
	}
	r, err := s.master.ChannelValueRange(ch)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%g .. %g\n", r.Min, r.Max)
	return nil
}

func uintArg(args []string, i int, name string) (uint32, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseUint(args[i], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[i])
	}
	return uint32(v), nil
}
