package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
)

/**
 * Convert a struct into an ordered map keyed by its json tags
 * @param {interface{}} v - Struct value to convert
 * @returns {*orderedmap.OrderedMap} Returns map preserving field declaration order
 * @description
 * - Round-trips through JSON so display columns follow the json tags
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct: %w", err)
	}
	record := orderedmap.New()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into ordered map: %w", err)
	}
	return record, nil
}

/**
 * Print records as an aligned table
 * @param {[]*orderedmap.OrderedMap} records - Rows to display, all sharing one key set
 * @description
 * - Column headers come from the first record's keys
 * - Empty input prints nothing
 */
func PrintFormat(records []*orderedmap.OrderedMap) {
	if len(records) == 0 {
		return
	}
	keys := records[0].Keys()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, key := range keys {
		header = append(header, strings.ToUpper(strings.ReplaceAll(key, "_", " ")))
	}
	t.AppendHeader(header)

	for _, record := range records {
		row := table.Row{}
		for _, key := range keys {
			value, ok := record.Get(key)
			if !ok {
				value = ""
			}
			row = append(row, value)
		}
		t.AppendRow(row)
	}
	t.Render()
}

// PrintJson prints a value as indented JSON.
func PrintJson(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshal failed: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
