package system

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"

	"github.com/engsuite/resolve/expr"
	"github.com/engsuite/resolve/quantity"
)

// serialization format version; bump on layout changes
const marshalVersion uint32 = 1

const headerLen = 4 + 8 + 8 // version + two section lengths

type header struct {
	version      uint32
	variablesLen uint64
	equationsLen uint64
}

func (h *header) toBytes() []byte {
	buf := make([]byte, headerLen)
	binary.BigEndian.PutUint32(buf[:4], h.version)
	binary.BigEndian.PutUint64(buf[4:12], h.variablesLen)
	binary.BigEndian.PutUint64(buf[12:20], h.equationsLen)
	return buf
}

func (h *header) fromBytes(buf []byte) {
	h.version = binary.BigEndian.Uint32(buf[:4])
	h.variablesLen = binary.BigEndian.Uint64(buf[4:12])
	h.equationsLen = binary.BigEndian.Uint64(buf[12:20])
}

type sVariable struct {
	Symbol   string  `cbor:"1,keyasint"`
	Name     string  `cbor:"2,keyasint,omitempty"`
	Dim      []int8  `cbor:"3,keyasint,omitempty"`
	DimSet   bool    `cbor:"4,keyasint,omitempty"`
	Positive bool    `cbor:"5,keyasint,omitempty"`
	Known    bool    `cbor:"6,keyasint,omitempty"`
	SI       float64 `cbor:"7,keyasint,omitempty"`
	Unit     string  `cbor:"8,keyasint,omitempty"`
}

type sEquation struct {
	Name string `cbor:"1,keyasint"`
	LHS  string `cbor:"2,keyasint"`
	RHS  *sNode `cbor:"3,keyasint"`
}

// node kinds in the expression table
const (
	nConst uint8 = iota
	nVar
	nBinary
	nCall
	nCond
)

type sNode struct {
	Kind     uint8    `cbor:"1,keyasint"`
	Op       uint8    `cbor:"2,keyasint,omitempty"` // Binary: expr.Op; Cond: expr.CmpOp; Call: expr.Fn
	SI       float64  `cbor:"3,keyasint,omitempty"`
	Dim      []int8   `cbor:"4,keyasint,omitempty"`
	Unit     string   `cbor:"5,keyasint,omitempty"`
	Symbol   string   `cbor:"6,keyasint,omitempty"`
	Children []*sNode `cbor:"7,keyasint,omitempty"`
}

// ToBytes serializes the system: a fixed header followed by the variables
// and equations sections, cbor-encoded. The two sections are encoded
// concurrently; decoding is position-driven off the header.
func (s *System) ToBytes() ([]byte, error) {
	var varsB, eqsB []byte
	var g errgroup.Group
	g.Go(func() error {
		var err error
		varsB, err = s.variablesToBytes()
		return err
	})
	g.Go(func() error {
		var err error
		eqsB, err = s.equationsToBytes()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := header{
		version:      marshalVersion,
		variablesLen: uint64(len(varsB)),
		equationsLen: uint64(len(eqsB)),
	}
	buf := h.toBytes()
	buf = append(buf, varsB...)
	buf = append(buf, eqsB...)
	return buf, nil
}

// FromBytes restores a system serialized with ToBytes and returns the number
// of bytes read.
func (s *System) FromBytes(data []byte) (int, error) {
	if len(data) < headerLen {
		return 0, errors.New("invalid data length")
	}
	h := new(header)
	h.fromBytes(data)
	if h.version != marshalVersion {
		return 0, fmt.Errorf("unsupported serialization version %d", h.version)
	}
	end := headerLen + int(h.variablesLen) + int(h.equationsLen)
	if len(data) < end {
		return 0, errors.New("invalid data length")
	}

	varsB := data[headerLen : headerLen+int(h.variablesLen)]
	eqsB := data[headerLen+int(h.variablesLen) : end]

	if err := s.variablesFromBytes(varsB); err != nil {
		return 0, err
	}
	if err := s.equationsFromBytes(eqsB); err != nil {
		return 0, err
	}
	return end, nil
}

// WriteTo implements io.WriterTo.
func (s *System) WriteTo(w io.Writer) (int64, error) {
	buf, err := s.ToBytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom implements io.ReaderFrom.
func (s *System) ReadFrom(r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	if _, err := s.FromBytes(buf.Bytes()); err != nil {
		return n, err
	}
	return n, nil
}

func cborEncMode() (cbor.EncMode, error) {
	return cbor.CoreDetEncOptions().EncMode()
}

func (s *System) variablesToBytes() ([]byte, error) {
	out := make([]sVariable, 0, s.vars.Len())
	for _, sym := range s.vars.Symbols() {
		v, _ := s.vars.Get(sym)
		sv := sVariable{
			Symbol:   v.symbol,
			Name:     v.name,
			DimSet:   v.dimSet,
			Positive: v.positive,
			Known:    v.known,
		}
		if v.dimSet {
			sv.Dim = dimToSlice(v.dim)
		}
		if v.known {
			sv.SI = v.value.SI()
			if u := v.value.Unit(); u != nil {
				sv.Unit = u.Symbol
			}
		}
		out = append(out, sv)
	}
	em, err := cborEncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(out)
}

func (s *System) variablesFromBytes(data []byte) error {
	var in []sVariable
	if err := cbor.Unmarshal(data, &in); err != nil {
		return err
	}
	s.vars = NewVariables()
	for _, sv := range in {
		v := &Variable{
			symbol:   sv.Symbol,
			name:     sv.Name,
			dimSet:   sv.DimSet,
			positive: sv.Positive,
		}
		if sv.DimSet {
			v.dim = dimFromSlice(sv.Dim)
		}
		if sv.Known {
			q := quantity.FromSI(sv.SI, v.dim)
			if sv.Unit != "" {
				if u, ok := quantity.LookupUnit(sv.Unit); ok {
					if cq, err := q.Convert(u); err == nil {
						q = cq
					}
				}
			}
			v.value = q
			v.known = true
		}
		if err := s.vars.Declare(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) equationsToBytes() ([]byte, error) {
	out := make([]sEquation, 0, len(s.eqs))
	for _, e := range s.eqs {
		n, err := encodeNode(e.rhs)
		if err != nil {
			return nil, err
		}
		out = append(out, sEquation{Name: e.name, LHS: e.lhs, RHS: n})
	}
	em, err := cborEncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(out)
}

func (s *System) equationsFromBytes(data []byte) error {
	var in []sEquation
	if err := cbor.Unmarshal(data, &in); err != nil {
		return err
	}
	s.eqs = nil
	for _, se := range in {
		rhs, err := decodeNode(se.RHS)
		if err != nil {
			return err
		}
		s.eqs = append(s.eqs, NewEquation(se.Name, se.LHS, rhs))
	}
	return nil
}

func encodeNode(e expr.Expr) (*sNode, error) {
	switch n := e.(type) {
	case *expr.Constant:
		q := n.Quantity()
		sn := &sNode{Kind: nConst, SI: q.SI(), Dim: dimToSlice(q.Dimension())}
		if u := q.Unit(); u != nil {
			sn.Unit = u.Symbol
		}
		return sn, nil
	case *expr.Var:
		return &sNode{Kind: nVar, Symbol: n.Symbol()}, nil
	case *expr.Binary:
		l, err := encodeNode(n.Left())
		if err != nil {
			return nil, err
		}
		r, err := encodeNode(n.Right())
		if err != nil {
			return nil, err
		}
		return &sNode{Kind: nBinary, Op: uint8(n.Op()), Children: []*sNode{l, r}}, nil
	case *expr.Call:
		arg, err := encodeNode(n.Arg())
		if err != nil {
			return nil, err
		}
		return &sNode{Kind: nCall, Op: uint8(n.Fn()), Children: []*sNode{arg}}, nil
	case *expr.Cond:
		pred := n.Pred()
		pl, err := encodeNode(pred.Left())
		if err != nil {
			return nil, err
		}
		pr, err := encodeNode(pred.Right())
		if err != nil {
			return nil, err
		}
		then, err := encodeNode(n.Then())
		if err != nil {
			return nil, err
		}
		els, err := encodeNode(n.Else())
		if err != nil {
			return nil, err
		}
		return &sNode{Kind: nCond, Op: uint8(pred.Op()), Children: []*sNode{pl, pr, then, els}}, nil
	default:
		return nil, fmt.Errorf("unserializable expression node %T", e)
	}
}

func decodeNode(n *sNode) (expr.Expr, error) {
	if n == nil {
		return nil, errors.New("missing expression node")
	}
	switch n.Kind {
	case nConst:
		q := quantity.FromSI(n.SI, dimFromSlice(n.Dim))
		if n.Unit != "" {
			if u, ok := quantity.LookupUnit(n.Unit); ok {
				if cq, err := q.Convert(u); err == nil {
					q = cq
				}
			}
		}
		return expr.Const(q), nil
	case nVar:
		return expr.V(n.Symbol), nil
	case nBinary:
		if len(n.Children) != 2 {
			return nil, errors.New("binary node needs two children")
		}
		l, err := decodeNode(n.Children[0])
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(n.Children[1])
		if err != nil {
			return nil, err
		}
		return expr.Bin(expr.Op(n.Op), l, r), nil
	case nCall:
		if len(n.Children) != 1 {
			return nil, errors.New("call node needs one child")
		}
		arg, err := decodeNode(n.Children[0])
		if err != nil {
			return nil, err
		}
		return expr.Apply(expr.Fn(n.Op), arg), nil
	case nCond:
		if len(n.Children) != 4 {
			return nil, errors.New("conditional node needs four children")
		}
		parts := make([]expr.Expr, 4)
		for i, c := range n.Children {
			p, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			parts[i] = p
		}
		return expr.If(expr.Cmp(expr.CmpOp(n.Op), parts[0], parts[1]), parts[2], parts[3]), nil
	default:
		return nil, fmt.Errorf("unknown expression node kind %d", n.Kind)
	}
}

func dimToSlice(d quantity.Dimension) []int8 {
	if d.IsDimensionless() {
		return nil
	}
	out := make([]int8, len(d))
	copy(out, d[:])
	return out
}

func dimFromSlice(s []int8) quantity.Dimension {
	var d quantity.Dimension
	copy(d[:], s)
	return d
}
