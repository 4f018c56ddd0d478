// Package jsonvalue provides the JSON-like value tree used by contracts,
// matching rules and the matching engine.
//
// A Value is one of Null, Boolean, Integer, Decimal, String, Array or Object.
// Numbers keep the literal digits they were parsed from so a document
// survives a parse and serialize cycle byte for byte in its canonical form:
//
//	v, err := jsonvalue.ParseString(`{"b":1.50,"a":[true,null]}`)
//	if err != nil {
//	    return err
//	}
//	v.Serialize() // {"a":[true,null],"b":1.50}
//
// Equality is structural. Numbers compare by value within the same variant,
// so 1.50 equals 1.5 but the Integer 1 never equals the Decimal 1.0.
package jsonvalue
