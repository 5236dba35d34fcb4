package mem

// Config is emulator-wide configuration the MMU consults. It is supplied
// by the caller at construction time and is not owned by the MMU.
type Config struct {
	// LogRead and LogWrite gate slog.Debug trace records naming the
	// operation width and guest address for every sized read/write.
	// Left false by default: the hot sized-I/O path should not pay for
	// formatting a log line on every guest instruction unless asked to.
	LogRead  bool
	LogWrite bool

	// LegacyMemoryMap is carried in Config to the model factory for
	// images built against the older host-mapping layout. Neither
	// mem.Base nor either model in this repository reads it, so it has
	// no effect on mapping.
	LegacyMemoryMap bool
}
