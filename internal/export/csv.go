package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tripledger/bookings/internal/models"
)

// WriteCSV writes the header and one row per booking, LF terminated.
func WriteCSV(w io.Writer, bookings []models.Booking) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bookings {
		if err := cw.Write(b.CSVRow()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes bookings to path, creating parent directories and
// replacing an existing file.
func WriteCSVFile(path string, bookings []models.Booking) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	if err := WriteCSV(f, bookings); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
