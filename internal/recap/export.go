package recap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var exportHeader = []string{"No", "Nama Siswa", "Kelas", "Hadir", "Terlambat", "Izin", "Sakit", "Alpa", "Total Kehadiran"}

// WriteCSV writes one row per summary, numbered from 1.
func WriteCSV(w io.Writer, rows []Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		c := r.Counts
		record := []string{
			strconv.Itoa(i + 1),
			r.Name,
			r.ClassName,
			strconv.Itoa(c.Present),
			strconv.Itoa(c.Late),
			strconv.Itoa(c.Permission),
			strconv.Itoa(c.Sick),
			strconv.Itoa(c.Absent),
			strconv.Itoa(r.Total),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName names an export, e.g. Laporan_Absensi_MONTHLY_2026_10.csv.
func FileName(p Period, now time.Time) string {
	return fmt.Sprintf("Laporan_Absensi_%s_%d_%d.csv", strings.ToUpper(string(p)), now.Year(), int(now.Month()))
}
