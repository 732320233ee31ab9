package internal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// binder fills one handler call from a request. Path segments are consumed
// in declaration order; query, body and session are only read.
type binder struct {
	req      *Request
	segments []string
	pos      int
}

func (rt *route) bind(req *Request, ws *WebSocket) ([]reflect.Value, error) {
	b := &binder{req: req, segments: req.PathParams()}
	args := make([]reflect.Value, len(rt.args))
	positional := 0

	for i, a := range rt.args {
		switch a.kind {
		case argRequest:
			args[i] = reflect.ValueOf(req)
		case argContext:
			args[i] = reflect.ValueOf(req)
		case argSocket:
			args[i] = reflect.ValueOf(ws)
		case argVariadic:
			args[i] = reflect.ValueOf(b.rest())
		case argPath:
			positional++
			name := fmt.Sprintf("arg%d", positional)
			seg, ok := b.next()
			if !ok {
				return nil, missingParam(name)
			}
			v, err := convert(seg, a.typ)
			if err != nil {
				return nil, invalidParam(name, err)
			}
			args[i] = v
		case argParams:
			v, err := b.params(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
	}
	return args, nil
}

func (b *binder) next() (string, bool) {
	if b.pos >= len(b.segments) {
		return "", false
	}
	seg := b.segments[b.pos]
	b.pos++
	return seg, true
}

func (b *binder) rest() []string {
	rest := make([]string, len(b.segments)-b.pos)
	copy(rest, b.segments[b.pos:])
	b.pos = len(b.segments)
	return rest
}

func (b *binder) params(a argSpec) (reflect.Value, error) {
	sv := reflect.New(a.typ).Elem()
	for _, f := range a.fields {
		fv := sv.Field(f.index)
		switch f.kind {
		case fieldRest:
			fv.Set(reflect.ValueOf(b.rest()))

		case fieldFile:
			if up := b.req.File(f.name); up != nil {
				fv.Set(reflect.ValueOf(up))
			} else if !f.optional {
				return reflect.Value{}, missingParam(f.name)
			}

		case fieldSlice:
			vals := b.values(f.name)
			if len(vals) == 0 && f.hasDefault && f.def != "" {
				vals = strings.Split(f.def, ",")
			}
			if len(vals) == 0 {
				continue
			}
			slice := reflect.MakeSlice(reflect.SliceOf(f.typ), len(vals), len(vals))
			for i, s := range vals {
				v, err := convert(s, f.typ)
				if err != nil {
					return reflect.Value{}, invalidParam(f.name, err)
				}
				slice.Index(i).Set(v)
			}
			fv.Set(slice)

		default:
			raw, ok := b.lookup(f.name)
			if !ok && f.hasDefault {
				raw, ok = f.def, true
			}
			if !ok {
				if f.optional {
					continue
				}
				return reflect.Value{}, missingParam(f.name)
			}
			v, err := assign(raw, f.typ)
			if err != nil {
				return reflect.Value{}, invalidParam(f.name, err)
			}
			if f.kind == fieldPointer {
				ptr := reflect.New(f.typ)
				ptr.Elem().Set(v)
				v = ptr
			}
			fv.Set(v)
		}
	}
	return sv, nil
}

// lookup applies the parameter precedence: path segment, query, body,
// existing session.
func (b *binder) lookup(name string) (any, bool) {
	if seg, ok := b.next(); ok {
		return seg, true
	}
	if vals := b.req.query[name]; len(vals) > 0 {
		return vals[0], true
	}
	if v, ok := b.req.bodyValue(name); ok {
		return v, true
	}
	if sess := b.req.existingSession(); sess != nil {
		if v, ok := sess.Get(name); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (b *binder) values(name string) []string {
	if vals := b.req.query[name]; len(vals) > 0 {
		return vals
	}
	return b.req.bodyValues(name)
}

// assign converts raw to t. Strings are parsed; other values (from the
// session) are used as-is when assignable, converted between numeric kinds,
// or formatted and parsed as a last resort.
func assign(raw any, t reflect.Type) (reflect.Value, error) {
	if s, ok := raw.(string); ok {
		return convert(s, t)
	}
	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumeric(v.Type()) && isNumeric(t) {
		return v.Convert(t), nil
	}
	return convert(fmt.Sprint(raw), t)
}

func convert(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if t == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return v, err
		}
		v.SetInt(int64(d))
		return v, nil
	}

	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(n)
	default:
		return v, fmt.Errorf("unsupported type %s", t)
	}
	return v, nil
}

func isNumeric(t reflect.Type) bool {
	return isScalar(t) && t.Kind() != reflect.String && t.Kind() != reflect.Bool
}

func missingParam(name string) *HTTPError {
	return ErrBadRequest(fmt.Sprintf("Missing required parameter '%s'", name))
}

func invalidParam(name string, err error) *HTTPError {
	return ErrBadRequest(fmt.Sprintf("Invalid value for parameter '%s'", name), WithError(err))
}
