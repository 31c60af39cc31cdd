package utils

import (
	"reflect"
	"strconv"
	"strings"

	"gorm.io/gorm/schema"
)

var naming = schema.NamingStrategy{}

// UpdatesFromPtrDTO builds a column->value map from the non-nil pointer
// fields of a pointer DTO, ready for gorm's Updates. Column names follow
// GORM's naming strategy for the field name unless the field carries a
// `gorm:"column:..."` tag. Fields tagged json:"-" are skipped.
func UpdatesFromPtrDTO(dto any) map[string]any {
	res := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return res
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return res
	}
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() || sf.Tag.Get("json") == "-" {
			continue
		}
		col := schema.ParseTagSetting(sf.Tag.Get("gorm"), ";")["COLUMN"]
		if col == "" {
			col = naming.ColumnName("", sf.Name)
		}
		res[col] = fv.Elem().Interface()
	}
	return res
}

// ParseIntDefault parses a non-negative int, returning def otherwise.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
