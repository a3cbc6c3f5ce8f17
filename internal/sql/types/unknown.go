package types

// nullType is the type of an untyped NULL literal. It only ever holds NULL.
type nullType struct{}

func (t *nullType) ID() TypeID {
	return TypeIDNull
}

func (t *nullType) Name() string {
	return "NULL"
}

func (t *nullType) Size() int {
	return 0
}

func (t *nullType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *nullType) Serialize(v Value) ([]byte, error) {
	return nil, nil
}

func (t *nullType) Deserialize(data []byte) (Value, error) {
	return NewNullValue(), nil
}

func (t *nullType) IsValid(v Value) bool {
	return v.Null
}

func (t *nullType) Zero() Value {
	return NewNullValue()
}
