package typecheck

// Config holds the strictness toggles for one pass.
type Config struct {
	CheckTemplates              bool
	CheckTypeOfInputBindings    bool
	StrictNullInputBindings     bool
	CheckTypeOfAttributes       bool
	CheckTypeOfOutputEvents     bool
	CheckTypeOfDomEvents        bool
	CheckTypeOfDomReferences    bool
	CheckTypeOfNonDomReferences bool
	CheckTypeOfPipes            bool
	ApplyTemplateContextGuards  bool
	CheckTemplateBodies         bool
	UseContextGenericType       bool
}

// Options are the user-facing settings. Nil Strict* flags follow the
// aggregate mode; a set flag always wins.
type Options struct {
	TemplateTypeCheck     *bool `toml:"template_type_check" yaml:"template_type_check"`
	FullTemplateTypeCheck bool  `toml:"full_template_type_check" yaml:"full_template_type_check"`
	StrictTemplates       bool  `toml:"strict_templates" yaml:"strict_templates"`

	StrictInputTypes       *bool `toml:"strict_input_types" yaml:"strict_input_types"`
	StrictNullInputTypes   *bool `toml:"strict_null_input_types" yaml:"strict_null_input_types"`
	StrictAttributeTypes   *bool `toml:"strict_attribute_types" yaml:"strict_attribute_types"`
	StrictOutputEventTypes *bool `toml:"strict_output_event_types" yaml:"strict_output_event_types"`
	StrictDomEventTypes    *bool `toml:"strict_dom_event_types" yaml:"strict_dom_event_types"`
	StrictDomLocalRefTypes *bool `toml:"strict_dom_local_ref_types" yaml:"strict_dom_local_ref_types"`
	StrictContextGenerics  *bool `toml:"strict_context_generics" yaml:"strict_context_generics"`
}

// ConfigFromOptions resolves the toggles once per pass.
//
//	TemplateTypeCheck=false  nothing is checked
//	default                  interpolations and bindings as opaque discards
//	FullTemplateTypeCheck    + structural bodies, non-DOM references, pipes
//	StrictTemplates          every toggle
//	Strict* flag             overrides the mode for its toggle;
//	                         StrictInputTypes also drives the guards
func ConfigFromOptions(o Options) Config {
	if o.TemplateTypeCheck != nil && !*o.TemplateTypeCheck {
		return Config{}
	}
	full := o.FullTemplateTypeCheck || o.StrictTemplates
	strict := o.StrictTemplates
	return Config{
		CheckTemplates:              true,
		CheckTypeOfInputBindings:    pick(o.StrictInputTypes, strict),
		StrictNullInputBindings:     pick(o.StrictNullInputTypes, strict),
		CheckTypeOfAttributes:       pick(o.StrictAttributeTypes, strict),
		CheckTypeOfOutputEvents:     pick(o.StrictOutputEventTypes, strict),
		CheckTypeOfDomEvents:        pick(o.StrictDomEventTypes, strict),
		CheckTypeOfDomReferences:    pick(o.StrictDomLocalRefTypes, strict),
		CheckTypeOfNonDomReferences: full,
		CheckTypeOfPipes:            full,
		ApplyTemplateContextGuards:  pick(o.StrictInputTypes, strict),
		CheckTemplateBodies:         full,
		UseContextGenericType:       pick(o.StrictContextGenerics, strict),
	}
}

func pick(flag *bool, mode bool) bool {
	if flag != nil {
		return *flag
	}
	return mode
}
