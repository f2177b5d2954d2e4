package adsql

// Features describes what the Advantage engine supports, for the ORM to
// branch on.
type Features struct {
	EmptyFetchManyValue           [][]interface{}
	UpdateCanSelfSelect           bool
	AllowsGroupByPK               bool
	RelatedFieldsMatchType        bool
	UsesCustomQueryClass          bool
	InterpretsEmptyStringsAsNulls bool
	UsesSavepoints                bool
	SupportsTransactions          bool
	SupportsRegex                 bool
	SupportsTimezones             bool
	SupportsForeignKeys           bool
}

// DefaultFeatures returns the feature set of an Advantage server.
func DefaultFeatures() Features {
	return Features{
		EmptyFetchManyValue:           [][]interface{}{},
		UpdateCanSelfSelect:           false,
		AllowsGroupByPK:               false,
		RelatedFieldsMatchType:        true,
		UsesCustomQueryClass:          true,
		InterpretsEmptyStringsAsNulls: true,
		UsesSavepoints:                false,
		SupportsTransactions:          true,
		SupportsRegex:                 false,
		SupportsTimezones:             false,
		SupportsForeignKeys:           false,
	}
}
