package yasdi

// DriverManager lists and toggles the communication interfaces (serial ports,
// interface drivers) configured in the yasdi library. It caches nothing;
// every call asks the library.
type DriverManager struct {
	lib DriverLibrary
}

func NewDriverManager(lib DriverLibrary) *DriverManager {
	return &DriverManager{lib: lib}
}

// OpenDriverManager loads libyasdi from path (empty for the default name).
func OpenDriverManager(path string) (*DriverManager, error) {
	lib, err := LoadDriverLibrary(path)
	if err != nil {
		return nil, err
	}
	return NewDriverManager(lib), nil
}

// Drivers returns the handles of all configured drivers, at most MaxDrivers.
func (m *DriverManager) Drivers() []DriverHandle {
	var buf [MaxDrivers]uint32
	n := m.lib.GetDriver(buf[:])
	if n > MaxDrivers {
		n = MaxDrivers
	}
	handles := make([]DriverHandle, n)
	for i := range handles {
		handles[i] = DriverHandle(buf[i])
	}
	return handles
}

// DriverName returns the configured name of a driver. The library returns
// the number of characters written, so zero means failure.
func (m *DriverManager) DriverName(h DriverHandle) (string, error) {
	var buf [DriverNameSize]byte
	if m.lib.GetDriverName(uint32(h), buf[:]) <= 0 {
		return "", ErrNoDriverName
	}
	return cString(buf[:]), nil
}

func (m *DriverManager) SetOnline(h DriverHandle) error {
	return callError("yasdiSetDriverOnline", m.lib.SetDriverOnline(uint32(h)))
}

func (m *DriverManager) SetOffline(h DriverHandle) error {
	return callError("yasdiSetDriverOffline", m.lib.SetDriverOffline(uint32(h)))
}

// Close unloads the library. Handles are invalid afterwards.
func (m *DriverManager) Close() error {
	return m.lib.Close()
}
