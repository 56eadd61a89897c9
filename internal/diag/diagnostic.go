package diag

import (
	"tmplcheck/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// TemplateOrigin marks a diagnostic that was reverse-mapped out of a synthetic
// type-check unit. ComponentFile is the file of the owning declaration, which
// may differ from Primary.File when the template lives in a resource.
type TemplateOrigin struct {
	ComponentFile source.FileID
	Declaration   string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Template *TemplateOrigin
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// AsTemplate tags the diagnostic with its owning declaration.
func (d Diagnostic) AsTemplate(componentFile source.FileID, decl string) Diagnostic {
	d.Template = &TemplateOrigin{ComponentFile: componentFile, Declaration: decl}
	return d
}

// IsTemplate reports whether the diagnostic came out of template type-checking.
func (d *Diagnostic) IsTemplate() bool {
	return d.Template != nil
}
