package models

import (
	"fmt"
	"strings"
)

// Group identifies one of the two production line families. Each family has
// its own measurement schema and its own storage table.
type Group string

const (
	Group1 Group = "group1"
	Group2 Group = "group2"
)

// Groups lists every known group in presentation order.
var Groups = []Group{Group1, Group2}

// ParseGroup converts a path segment such as "group1" into a Group.
func ParseGroup(value string) (Group, error) {
	switch Group(strings.ToLower(strings.TrimSpace(value))) {
	case Group1:
		return Group1, nil
	case Group2:
		return Group2, nil
	default:
		return "", fmt.Errorf("unknown group %q", value)
	}
}

// Field describes one numeric measurement column.
type Field struct {
	Key    string // JSON key
	Column string // SQL column and BSON key
	Label  string // spreadsheet header
}

// Schema describes the field set and line codes of a group.
type Schema struct {
	Group        Group
	Table        string
	Lines        []string
	SpecialLines []string
	Measurements []Field
}

var group1Schema = Schema{
	Group:        Group1,
	Table:        "records_group1",
	Lines:        []string{"L90", "L91", "L92", "L93", "L94", "L80", "L81", "L82", "L83"},
	SpecialLines: []string{"L80", "L81", "L82", "L83"},
	Measurements: []Field{
		{Key: "lineSpeed", Column: "line_speed", Label: "VELOCIDADE\nDA LINHA"},
		{Key: "coreAttach", Column: "core_attach", Label: "CORE ATTACH\n(ADESIVO\nCENTRAL)"},
		{Key: "coreWrap", Column: "core_wrap", Label: "CORE WRAP\n(ADESIVO\nLATERAL)"},
		{Key: "surge", Column: "surge", Label: "SURGE"},
		{Key: "cuffEnd", Column: "cuff_end", Label: "CUFF END"},
		{Key: "bead", Column: "bead", Label: "BEAD"},
		{Key: "legElastic", Column: "leg_elastic", Label: "LEG ELASTIC\n(ELÁSTICO DA\nPERNA)"},
		{Key: "cuffElastic", Column: "cuff_elastic", Label: "CUFF ELASTIC\n(ELÁSTICO DA\nCUFF)"},
		{Key: "temporary", Column: "temporary", Label: "TEMPORARY"},
		{Key: "topsheet", Column: "topsheet", Label: "TOPSHEET\n(NON\nWOVEN)"},
		{Key: "backsheet", Column: "backsheet", Label: "BACKSHEET\n(POLY)"},
		{Key: "frontal", Column: "frontal", Label: "FRONTAL"},
		{Key: "earAttach", Column: "ear_attach", Label: "EAR\nATTACH"},
		{Key: "pulpFix", Column: "pulp_fix", Label: "PULP FIX"},
		{Key: "central", Column: "central", Label: "CENTRAL"},
		{Key: "release", Column: "release", Label: "RELEASE"},
		{Key: "tapeOnBag", Column: "tape_on_bag", Label: "TAPE ON\nBAG"},
		{Key: "film1x1", Column: "film_1x1", Label: "FILME 1X1"},
	},
}

// Every group 2 line carries the panel parameter and acrisson readings, so
// SpecialLines stays nil and CarriesSpecialFields answers true for all lines.
var group2Schema = Schema{
	Group: Group2,
	Table: "records_group2",
	Lines: []string{"L84", "L85"},
	Measurements: []Field{
		{Key: "lineSpeed", Column: "line_speed", Label: "VELOCIDADE\nDA LINHA"},
		{Key: "waistPacker", Column: "waist_packer", Label: "WAIST\nPACKER"},
		{Key: "isgElastic", Column: "isg_elastic", Label: "ISG\nELASTIC"},
		{Key: "waistElastic", Column: "waist_elastic", Label: "WAIST\nELASTIC"},
		{Key: "isgSideSeal", Column: "isg_side_seal", Label: "ISG SIDE\nSEAL"},
		{Key: "absorbentFix", Column: "absorbent_fix", Label: "ABSORVENT\nFIX"},
		{Key: "outerEdge", Column: "outer_edge", Label: "OUTER\nEDGE"},
		{Key: "inner", Column: "inner", Label: "INNER"},
		{Key: "bead", Column: "bead", Label: "BEAD"},
		{Key: "standingGather", Column: "standing_gather", Label: "STANDING\nGATHER\nFRONT B. FIX"},
		{Key: "backfilmFix", Column: "backfilm_fix", Label: "BACKFILM\nFIX"},
		{Key: "osgSideSeal", Column: "osg_side_seal", Label: "OSG SIDE\nSEAL"},
		{Key: "osgElastic", Column: "osg_elastic", Label: "OSG\nELÁSTICO\n(LATERAL)"},
		{Key: "nwSealContLateral", Column: "nw_seal_cont_lateral", Label: "NW SEAL\nCONT\n(LATERAL)"},
		{Key: "nwSealIntCentral", Column: "nw_seal_int_central", Label: "NW SEAL\nINT CENT\n(RAL)"},
		{Key: "outsideBackFilm", Column: "outside_back_film", Label: "OUT SIDE\nBACK FILM\nFIX"},
		{Key: "topsheetFix", Column: "topsheet_fix", Label: "TOPSHEET\nFIX"},
		{Key: "coreWrap", Column: "core_wrap", Label: "CORE\nWRAP"},
		{Key: "coreWrapSeal", Column: "core_wrap_seal", Label: "CORE\nWRAP SIDE\nSEAL"},
		{Key: "matFix", Column: "mat_fix", Label: "MAT FIX"},
	},
}

// SchemaFor returns the schema of a group. It panics on an unknown group since
// groups only come from ParseGroup or the package constants.
func SchemaFor(group Group) *Schema {
	switch group {
	case Group1:
		return &group1Schema
	case Group2:
		return &group2Schema
	default:
		panic(fmt.Sprintf("models: no schema for group %q", group))
	}
}

// HasLine reports whether the line code belongs to the group.
func (s *Schema) HasLine(line string) bool {
	for _, l := range s.Lines {
		if l == line {
			return true
		}
	}
	return false
}

// CarriesSpecialFields reports whether records of the line hold the panel
// parameter and acrisson readings.
func (s *Schema) CarriesSpecialFields(line string) bool {
	if s.SpecialLines == nil {
		return true
	}
	for _, l := range s.SpecialLines {
		if l == line {
			return true
		}
	}
	return false
}

// Field looks a measurement up by JSON key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Measurements {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
