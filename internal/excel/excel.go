package excel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/leaguesched/internal/config"
	"github.com/derekprior/leaguesched/internal/schedule"
)

// MasterSheet is the sheet holding one row per match period.
const MasterSheet = "Master Schedule"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// Sheet is a schedule read back from a workbook.
type Sheet struct {
	Arenas  []string
	Corners int
	Output  schedule.Output
	Rows    map[int]int // match period -> worksheet row
}

// Generate creates an Excel workbook with the master schedule and per-team sheets.
func Generate(cfg *config.Config, result *schedule.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	if err := writeMasterSheet(f, cfg.Arenas, cfg.Corners, result.Output); err != nil {
		return nil, fmt.Errorf("writing master sheet: %w", err)
	}

	if err := writeTeamSheets(f, cfg.Teams, cfg.Arenas, result.Output); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

// ReadSchedule opens a workbook written by Generate and reads its master sheet.
func ReadSchedule(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return readMaster(f)
}

// UpdateTeamSheets regenerates the per-team sheets from the master sheet, so
// hand edits to the master schedule carry through.
func UpdateTeamSheets(path string, teams []string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sheet, err := readMaster(f)
	if err != nil {
		return err
	}

	for _, team := range teams {
		name := sheetName(team)
		if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
			if err := f.DeleteSheet(name); err != nil {
				return fmt.Errorf("removing sheet %q: %w", name, err)
			}
		}
	}

	if err := writeTeamSheets(f, teams, sheet.Arenas, sheet.Output); err != nil {
		return fmt.Errorf("writing team sheets: %w", err)
	}
	return f.Save()
}

func cornerColumnName(arena string, corner int) string {
	return fmt.Sprintf("%s %d", arena, corner+1)
}

func writeMasterSheet(f *excelize.File, arenas []string, corners int, out schedule.Output) error {
	sheet := MasterSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// Headers: Period, <arena> 1 .. <arena> N, ...
	headers := []string{"Period"}
	for _, a := range arenas {
		for c := range corners {
			headers = append(headers, cornerColumnName(a, c))
		}
	}
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if headerStyle != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), headerStyle)
	}

	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, period := range out.Keys() {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), period)

		col := 2
		for _, a := range arenas {
			game := out[period][a]
			for c := range corners {
				if c < len(game) && game[c] != schedule.NoEntrant {
					f.SetCellValue(sheet, cellRef(col, row), game[c])
				}
				col++
			}
		}

		if cellStyle != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), cellStyle)
		}
	}

	// Set column widths (sized for Arial 16)
	f.SetColWidth(sheet, "A", "A", 10)
	if len(headers) > 1 {
		f.SetColWidth(sheet, colLetter(2), colLetter(len(headers)), 22)
	}

	// Empty corners get a light grey fill
	lastRow := out.Len() + 1
	if lastRow > 1 && len(headers) > 1 {
		greyFill, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7E6E6"}},
			Font: &excelize.Font{Size: 16, Family: "Arial"},
		})
		cellRange := fmt.Sprintf("B2:%s%d", colLetter(len(headers)), lastRow)
		f.SetConditionalFormat(sheet, cellRange, []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: `LEN(B2)=0`,
				Format:   &greyFill,
			},
		})
	}

	return nil
}

func writeTeamSheets(f *excelize.File, teams, arenas []string, out schedule.Output) error {
	type teamGame struct {
		period    int
		arena     string
		corner    int
		opponents []string
	}
	games := make(map[string][]teamGame)
	for _, period := range out.Keys() {
		for _, a := range arenas {
			game := out[period][a]
			for c, team := range game {
				if team == schedule.NoEntrant {
					continue
				}
				var opponents []string
				for o, other := range game {
					if o != c && other != schedule.NoEntrant {
						opponents = append(opponents, other)
					}
				}
				games[team] = append(games[team], teamGame{period, a, c + 1, opponents})
			}
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})

	for _, team := range teams {
		sheet := sheetName(team)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet for %s: %w", team, err)
		}

		headers := []string{"Period", "Arena", "Corner", "Opponents"}
		for i, h := range headers {
			f.SetCellValue(sheet, cellRef(i+1, 1), h)
		}
		if headerStyle != 0 {
			f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), headerStyle)
		}

		for i, g := range games[team] {
			row := i + 2
			f.SetCellValue(sheet, cellRef(1, row), g.period)
			f.SetCellValue(sheet, cellRef(2, row), g.arena)
			f.SetCellValue(sheet, cellRef(3, row), g.corner)
			f.SetCellValue(sheet, cellRef(4, row), strings.Join(g.opponents, ", "))
			if cellStyle != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), cellStyle)
			}
		}

		widths := map[string]float64{"A": 10, "B": 20, "C": 10, "D": 50}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

func readMaster(f *excelize.File) (*Sheet, error) {
	rows, err := f.GetRows(MasterSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", MasterSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", MasterSheet)
	}

	// Header columns after Period are "<arena> <corner>"
	type cornerCol struct {
		arena  string
		corner int
	}
	header := rows[0]
	cols := make([]cornerCol, len(header))
	sheet := &Sheet{Output: make(schedule.Output), Rows: make(map[int]int)}
	seenArena := make(map[string]bool)
	for i := 1; i < len(header); i++ {
		cut := strings.LastIndex(header[i], " ")
		if cut < 0 {
			return nil, fmt.Errorf("column %s: header %q is not \"<arena> <corner>\"", colLetter(i+1), header[i])
		}
		corner, err := strconv.Atoi(header[i][cut+1:])
		if err != nil || corner < 1 {
			return nil, fmt.Errorf("column %s: header %q has no corner number", colLetter(i+1), header[i])
		}
		arena := header[i][:cut]
		cols[i] = cornerCol{arena, corner - 1}
		if !seenArena[arena] {
			seenArena[arena] = true
			sheet.Arenas = append(sheet.Arenas, arena)
		}
		sheet.Corners = max(sheet.Corners, corner)
	}

	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: period %q is not a number", i+1, row[0])
		}
		if _, dup := sheet.Output[period]; dup {
			return nil, fmt.Errorf("row %d: period %d listed twice", i+1, period)
		}

		games := make(map[string][]string, len(sheet.Arenas))
		for _, a := range sheet.Arenas {
			games[a] = make([]string, sheet.Corners)
		}
		for c := 1; c < len(header); c++ {
			if c < len(row) {
				games[cols[c].arena][cols[c].corner] = strings.TrimSpace(row[c])
			}
		}
		sheet.Output[period] = games
		sheet.Rows[period] = i + 1
	}

	return sheet, nil
}

// sheetName trims a team name to a valid worksheet name.
func sheetName(team string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, team)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
