package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Ошибки I/O
	IOLoadFileError     Code = 1001
	IOResourceLoadError Code = 1002

	// Разбор шаблонов (всё здесь фатально для прохода)
	TplUnclosedElement           Code = 2001
	TplMismatchedClose           Code = 2002
	TplUnterminatedInterpolation Code = 2003
	TplUnterminatedAttribute     Code = 2004
	TplInvalidExpression         Code = 2005
	TplMultipleStructural        Code = 2006
	TplMalformedAttribute        Code = 2007
	TplInvalidStructural         Code = 2008
	TplUnknownStructural         Code = 2009

	// Анализ маркеров
	AnlInvalidMarker       Code = 3001
	AnlMissingField        Code = 3002
	AnlWrongValueType      Code = 3003
	AnlDynamicValue        Code = 3004
	AnlUnknownField        Code = 3005
	AnlUnknownInput        Code = 3006
	AnlUnknownOutput       Code = 3007
	AnlInvalidSelector     Code = 3008
	AnlConflictingTemplate Code = 3009
	AnlInvalidProvidedIn   Code = 3010
	AnlNotStruct           Code = 3011
	AnlDuplicateMarker     Code = 3012

	// Разрешение областей видимости
	ResNotDeclarable        Code = 4001
	ResNotModule            Code = 4002
	ResMultipleModules      Code = 4003
	ResExportNotVisible     Code = 4004
	ResPipeMissingTransform Code = 4005
	ResUnknownReference     Code = 4006
	ResDuplicatePipeName    Code = 4007

	// Проверка типов шаблонов
	TcbTypeError          Code = 5001
	TcbMissingPipe        Code = 5002
	TcbUnknownRefTarget   Code = 5003
	TcbDuplicateVariable  Code = 5004
	TcbAmbiguousComponent Code = 5005
	TcbOutOfBand          Code = 5006

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:                  "Unknown error",
	IOLoadFileError:              "Failed to load file",
	IOResourceLoadError:          "Failed to load template resource",
	TplUnclosedElement:           "Unclosed element",
	TplMismatchedClose:           "Mismatched closing tag",
	TplUnterminatedInterpolation: "Unterminated interpolation",
	TplUnterminatedAttribute:     "Unterminated attribute value",
	TplInvalidExpression:         "Invalid template expression",
	TplMultipleStructural:        "Multiple structural attributes on one element",
	TplMalformedAttribute:        "Malformed attribute",
	TplInvalidStructural:         "Invalid structural attribute",
	TplUnknownStructural:         "Unknown structural attribute",
	AnlInvalidMarker:             "Invalid declaration marker",
	AnlMissingField:              "Missing required marker field",
	AnlWrongValueType:            "Marker field has the wrong type",
	AnlDynamicValue:              "Marker field is not statically known",
	AnlUnknownField:              "Unknown marker field",
	AnlUnknownInput:              "Input is not a field of the declaration",
	AnlUnknownOutput:             "Output is not a field of the declaration",
	AnlInvalidSelector:           "Invalid selector",
	AnlConflictingTemplate:       "Template and TemplateURL are mutually exclusive",
	AnlInvalidProvidedIn:         "Invalid ProvidedIn value",
	AnlNotStruct:                 "Declaration must be a struct type",
	AnlDuplicateMarker:           "Declaration carries more than one marker",
	ResNotDeclarable:             "Module declaration is not a component, directive or pipe",
	ResNotModule:                 "Module import is not a module",
	ResMultipleModules:           "Declaration belongs to multiple modules",
	ResExportNotVisible:          "Exported declaration is neither declared nor imported",
	ResPipeMissingTransform:      "Pipe has no Transform method",
	ResUnknownReference:          "Reference does not name a known declaration",
	ResDuplicatePipeName:         "Duplicate pipe name in scope",
	TcbTypeError:                 "Template type error",
	TcbMissingPipe:               "Unknown pipe",
	TcbUnknownRefTarget:          "Reference target not found",
	TcbDuplicateVariable:         "Duplicate template variable",
	TcbAmbiguousComponent:        "Element matches more than one component",
	TcbOutOfBand:                 "Unmapped type-check diagnostic",
	ObsInfo:                      "Observability info",
	ObsTimings:                   "Timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ANL%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("TCB%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
