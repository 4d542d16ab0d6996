package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultGPIORoot is where the kernel exposes sysfs GPIO lines.
const DefaultGPIORoot = "/sys/class/gpio"

// LogIndicator only logs target changes. It stands in for LEDs on machines
// without GPIO.
type LogIndicator struct{}

func (LogIndicator) Set(index int, on bool) {
	log.Info().Int("indicator", index+1).Bool("on", on).Msg("indicator changed")
}

// SysfsIndicator drives one LED per target through sysfs GPIO value files.
type SysfsIndicator struct {
	root      string
	pins      []int
	activeLow bool

	mu sync.Mutex
}

// NewSysfsIndicator exports pins as outputs under root and switches every
// LED off. With activeLow a low level lights the LED.
func NewSysfsIndicator(root string, pins []int, activeLow bool) (*SysfsIndicator, error) {
	s := &SysfsIndicator{root: root, pins: pins, activeLow: activeLow}
	for _, pin := range pins {
		if err := export(root, pin, "out"); err != nil {
			return nil, err
		}
	}
	s.AllOff()
	return s, nil
}

// Set switches target index on or off. Unknown indexes are ignored.
func (s *SysfsIndicator) Set(index int, on bool) {
	if index < 0 || index >= len(s.pins) {
		log.Warn().Int("indicator", index).Msg("ignoring unknown indicator")
		return
	}

	level := on != s.activeLow
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeValue(s.root, s.pins[index], level); err != nil {
		log.Error().Err(err).Int("pin", s.pins[index]).Msg("failed to set indicator")
	}
}

// AllOff switches every LED off.
func (s *SysfsIndicator) AllOff() {
	for i := range s.pins {
		s.Set(i, false)
	}
}

func pinDir(root string, pin int) string {
	return filepath.Join(root, fmt.Sprintf("gpio%d", pin))
}

// export makes pin available under root with the given direction. Lines
// that are already exported are reused.
func export(root string, pin int, direction string) error {
	dir := pinDir(root, pin)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(root, "export"), []byte(strconv.Itoa(pin)), 0o644); err != nil {
			return fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte(direction), 0o644); err != nil {
		return fmt.Errorf("set gpio %d direction: %w", pin, err)
	}
	return nil
}

func writeValue(root string, pin int, high bool) error {
	v := "0"
	if high {
		v = "1"
	}
	return os.WriteFile(filepath.Join(pinDir(root, pin), "value"), []byte(v), 0o644)
}

func readValue(root string, pin int) (bool, error) {
	data, err := os.ReadFile(filepath.Join(pinDir(root, pin), "value"))
	if err != nil {
		return false, err
	}
	return len(data) > 0 && data[0] == '1', nil
}
