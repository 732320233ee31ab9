package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"
)

var (
	requestType  = reflect.TypeFor[*Request]()
	contextType  = reflect.TypeFor[context.Context]()
	socketType   = reflect.TypeFor[*WebSocket]()
	uploadType   = reflect.TypeFor[*FileUpload]()
	errorType    = reflect.TypeFor[error]()
	durationType = reflect.TypeFor[time.Duration]()
	stringsType  = reflect.TypeFor[[]string]()
)

// Methods of the application value that are lifecycle or middleware hooks,
// never routes.
var reservedMethods = map[string]bool{
	"OnStartup":       true,
	"OnShutdown":      true,
	"ServeHTTP":       true,
	"BeforeRequest":   true,
	"AfterRequest":    true,
	"BeforeWebSocket": true,
	"AfterWebSocket":  true,
}

type argKind int

const (
	argRequest argKind = iota
	argContext
	argSocket
	argPath
	argVariadic
	argParams
)

type fieldKind int

const (
	fieldScalar fieldKind = iota
	fieldPointer
	fieldSlice
	fieldRest
	fieldFile
)

type argSpec struct {
	typ    reflect.Type
	fields []fieldSpec
	kind   argKind
}

type fieldSpec struct {
	typ        reflect.Type
	name       string
	def        string
	index      int
	kind       fieldKind
	hasDefault bool
	optional   bool
}

type resultKind int

const (
	resultNone resultKind = iota
	resultValue
	resultError
	resultValueError
)

// route is a handler whose signature was validated at registration.
type route struct {
	fn       reflect.Value
	name     string
	args     []argSpec
	result   resultKind
	socket   bool
	variadic bool
}

// namedHandler is a handler registered with WithHandler or WithWebSocketHandler.
type namedHandler struct {
	fn     any
	name   string
	socket bool
}

// registry holds the routes of an App. It is immutable after New.
type registry struct {
	routes  map[string]*route
	sockets map[string]*route
}

func buildRegistry(target any, extra []namedHandler, log *slog.Logger) (*registry, error) {
	reg := &registry{
		routes:  make(map[string]*route),
		sockets: make(map[string]*route),
	}

	if target != nil {
		v := reflect.ValueOf(target)
		t := v.Type()
		for i := range t.NumMethod() {
			m := t.Method(i)
			if reservedMethods[m.Name] {
				continue
			}
			name, socket := socketName(m.Name)
			if !socket {
				name = routeName(m.Name)
			}
			rt, err := newRoute(name, v.Method(i), socket)
			if err != nil {
				log.Debug("skipping method", slog.String("method", m.Name), slog.Any("error", err))
				continue
			}
			reg.add(rt)
			log.Debug("route registered", slog.String("route", name), slog.Bool("websocket", socket))
		}
	}

	for _, h := range extra {
		if h.name == "" || strings.HasPrefix(h.name, "_") || strings.Contains(h.name, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHandlerName, h.name)
		}
		rt, err := newRoute(h.name, reflect.ValueOf(h.fn), h.socket)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHandler, h.name, err)
		}
		reg.add(rt)
	}

	return reg, nil
}

func (reg *registry) add(rt *route) {
	if rt.socket {
		reg.sockets[rt.name] = rt
		return
	}
	reg.routes[rt.name] = rt
}

// resolve maps path segments to a route: the first segment names the
// handler, the rest are positional arguments. No segments means "index".
func (reg *registry) resolve(segments []string, socket bool) (*route, []string, error) {
	name, rest := "index", segments
	if len(segments) > 0 {
		name, rest = segments[0], segments[1:]
	}
	if strings.HasPrefix(name, "_") {
		return nil, nil, ErrNotFound("")
	}
	rt := reg.lookup(name, socket)
	if rt == nil {
		return nil, nil, ErrNotFound("")
	}
	return rt, rest, nil
}

func (reg *registry) lookup(name string, socket bool) *route {
	if socket {
		return reg.sockets[name]
	}
	return reg.routes[name]
}

func newRoute(name string, fn reflect.Value, socket bool) (*route, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, errors.New("not a function")
	}
	t := fn.Type()
	rt := &route{
		fn:       fn,
		name:     name,
		socket:   socket,
		variadic: t.IsVariadic(),
		args:     make([]argSpec, 0, t.NumIn()),
	}

	hasParams, hasSocket := false, false
	for i := range t.NumIn() {
		in := t.In(i)
		switch {
		case in == requestType:
			rt.args = append(rt.args, argSpec{kind: argRequest})
		case in == contextType:
			rt.args = append(rt.args, argSpec{kind: argContext})
		case in == socketType:
			if !socket {
				return nil, errors.New("*WebSocket argument on a plain handler")
			}
			hasSocket = true
			rt.args = append(rt.args, argSpec{kind: argSocket})
		case rt.variadic && i == t.NumIn()-1:
			if in.Elem().Kind() != reflect.String {
				return nil, fmt.Errorf("variadic argument must be ...string, got %s", in)
			}
			rt.args = append(rt.args, argSpec{kind: argVariadic, typ: in})
		case in.Kind() == reflect.Struct:
			if hasParams {
				return nil, errors.New("more than one parameter struct")
			}
			fields, err := paramFields(in)
			if err != nil {
				return nil, err
			}
			hasParams = true
			rt.args = append(rt.args, argSpec{kind: argParams, typ: in, fields: fields})
		case isScalar(in):
			rt.args = append(rt.args, argSpec{kind: argPath, typ: in})
		default:
			return nil, fmt.Errorf("unsupported argument type %s", in)
		}
	}
	if socket && !hasSocket {
		return nil, errors.New("websocket handler must accept *WebSocket")
	}

	switch t.NumOut() {
	case 0:
		rt.result = resultNone
	case 1:
		rt.result = resultValue
		if t.Out(0) == errorType {
			rt.result = resultError
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, errors.New("second result must be error")
		}
		rt.result = resultValueError
	default:
		return nil, errors.New("too many results")
	}
	if socket && (rt.result == resultValue || rt.result == resultValueError) {
		return nil, errors.New("websocket handler may only return error")
	}

	return rt, nil
}

// paramFields reads the named parameters declared by a struct's exported
// fields. Tags: param:"name[,rest|,optional]" and default:"value".
func paramFields(t reflect.Type) ([]fieldSpec, error) {
	fields := make([]fieldSpec, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("param")
		if tag == "-" {
			continue
		}
		name, flags, _ := strings.Cut(tag, ",")
		if name == "" {
			name = routeName(f.Name)
		}

		fs := fieldSpec{name: name, index: i, typ: f.Type}
		fs.def, fs.hasDefault = f.Tag.Lookup("default")
		for flag := range strings.SplitSeq(flags, ",") {
			switch flag {
			case "":
			case "rest":
				fs.kind = fieldRest
			case "optional":
				fs.optional = true
			default:
				return nil, fmt.Errorf("field %s: unknown param flag %q", f.Name, flag)
			}
		}

		switch {
		case fs.kind == fieldRest:
			if f.Type != stringsType {
				return nil, fmt.Errorf("field %s: rest parameter must be []string", f.Name)
			}
			fs.optional = true
		case f.Type == uploadType:
			fs.kind = fieldFile
		case f.Type.Kind() == reflect.Slice && isScalar(f.Type.Elem()):
			fs.kind, fs.typ, fs.optional = fieldSlice, f.Type.Elem(), true
		case f.Type.Kind() == reflect.Pointer && isScalar(f.Type.Elem()):
			fs.kind, fs.typ, fs.optional = fieldPointer, f.Type.Elem(), true
		case isScalar(f.Type):
			fs.kind = fieldScalar
		default:
			return nil, fmt.Errorf("field %s: unsupported type %s", f.Name, f.Type)
		}

		if fs.hasDefault && (fs.kind == fieldScalar || fs.kind == fieldPointer) {
			if _, err := convert(fs.def, fs.typ); err != nil {
				return nil, fmt.Errorf("field %s: bad default %q: %w", f.Name, fs.def, err)
			}
		}
		fields = append(fields, fs)
	}
	return fields, nil
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
