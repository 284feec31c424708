package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ersonp/roots-core/internal/domain/entities"
)

// csvColumns is the column order written by WriteCSV.
var csvColumns = []string{
	"id", "first_name", "last_name", "maiden_name", "nickname", "gender",
	"birth_date", "birth_place", "death_date", "death_place", "is_living",
	"occupation", "bio", "parents", "spouses",
}

// CSVParser parses persons from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed persons.
// Required column: first_name. The parents and spouses columns hold
// "id:subtype" entries separated by ";".
func (p *CSVParser) Parse(r io.Reader) ([]RawPerson, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}

	if _, ok := colIndex["first_name"]; !ok {
		return nil, fmt.Errorf("missing required column: first_name")
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawPersons.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawPerson, error) {
	var persons []RawPerson
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		person, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}

	return persons, nil
}

// parseRecord converts a CSV record to a RawPerson.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawPerson, error) {
	person := RawPerson{
		ID:         getColumn(record, colIndex, "id"),
		FirstName:  getColumn(record, colIndex, "first_name"),
		LastName:   getColumn(record, colIndex, "last_name"),
		MaidenName: getColumn(record, colIndex, "maiden_name"),
		Nickname:   getColumn(record, colIndex, "nickname"),
		Gender:     getColumn(record, colIndex, "gender"),
		BirthDate:  getColumn(record, colIndex, "birth_date"),
		BirthPlace: getColumn(record, colIndex, "birth_place"),
		DeathDate:  getColumn(record, colIndex, "death_date"),
		DeathPlace: getColumn(record, colIndex, "death_place"),
		Occupation: getColumn(record, colIndex, "occupation"),
		Bio:        getColumn(record, colIndex, "bio"),
		LineNum:    lineNum,
	}

	if living := getColumn(record, colIndex, "is_living"); living != "" {
		v, err := strconv.ParseBool(living)
		if err != nil {
			return RawPerson{}, fmt.Errorf("line %d: invalid is_living value %q: %w", lineNum, living, err)
		}
		person.IsLiving = &v
	}

	for _, link := range splitLinks(getColumn(record, colIndex, "parents")) {
		person.ParentRelationships = append(person.ParentRelationships, entities.ParentRelationship{
			PersonID: link[0],
			Type:     entities.ParentType(link[1]),
		})
	}
	for _, link := range splitLinks(getColumn(record, colIndex, "spouses")) {
		person.SpouseRelationships = append(person.SpouseRelationships, entities.SpouseRelationship{
			PersonID: link[0],
			Status:   entities.SpouseStatus(link[1]),
		})
	}

	return person, nil
}

// splitLinks parses "a:step;b" into {{"a", "step"}, {"b", ""}}.
func splitLinks(s string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, subtype, _ := strings.Cut(part, ":")
		out = append(out, [2]string{strings.TrimSpace(id), strings.TrimSpace(subtype)})
	}
	return out
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// WriteCSV writes persons in the column layout read by CSVParser.
func WriteCSV(w io.Writer, persons []entities.Person) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range persons {
		p := &persons[i]
		parents := make([]string, 0, len(p.ParentRelationships))
		for _, r := range p.ParentRelationships {
			parents = append(parents, r.PersonID+":"+string(r.Type))
		}
		spouses := make([]string, 0, len(p.SpouseRelationships))
		for _, s := range p.SpouseRelationships {
			spouses = append(spouses, s.PersonID+":"+string(s.Status))
		}

		row := []string{
			p.ID, p.FirstName, p.LastName, p.MaidenName, p.Nickname, string(p.Gender),
			p.BirthDate, p.BirthPlace, p.DeathDate, p.DeathPlace, strconv.FormatBool(p.IsLiving),
			p.Occupation, p.Bio, strings.Join(parents, ";"), strings.Join(spouses, ";"),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
