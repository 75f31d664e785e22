package luabridge

import (
	"zombiezen.com/go/lua"
)

// userdataBlock is the memory owned by a full userdata created with
// NewUserdata. It is stored in the first user value of the userdata and is
// released when the userdata is collected.
type userdataBlock struct {
	data []byte
}

// NewUserdata pushes a new full userdata owning a zeroed block of size bytes
// and returns the block. The slice stays valid while the userdata is
// reachable; writes through it are visible to every holder of the value.
func (s *State) NewUserdata(size int) []byte {
	l := s.l
	s.ensure(3)
	blk := &userdataBlock{data: make([]byte, size)}
	l.NewUserdataUV(1)
	l.PushGoValue(blk)
	l.SetUserValue(-2, 1)
	return blk.data
}

// ToUserdata returns the block of the full userdata at idx.
// It reports false for any other value, including userdata not created by
// NewUserdata.
func (s *State) ToUserdata(idx int) ([]byte, bool) {
	blk := s.userdataBlock(idx)
	if blk == nil {
		return nil, false
	}
	return blk.data, true
}

func (s *State) userdataBlock(idx int) *userdataBlock {
	l := s.l
	if l.Type(idx) != lua.TypeUserdata {
		return nil
	}
	s.ensure(3)
	l.UserValue(idx, 1)
	blk, _ := l.ToGoValue(-1).(*userdataBlock)
	l.Pop(1)
	return blk
}

// TestUserdata returns the block of the value at idx if it is a userdata
// whose metatable is the one registered under tname.
func (s *State) TestUserdata(idx int, tname string) ([]byte, bool) {
	l := s.l
	idx = l.AbsIndex(idx)
	blk := s.userdataBlock(idx)
	if blk == nil {
		return nil, false
	}
	s.ensure(2)
	if !l.Metatable(idx) {
		return nil, false
	}
	lua.Metatable(l, tname)
	ok := l.RawEqual(-1, -2)
	l.Pop(2)
	if !ok {
		return nil, false
	}
	return blk.data, true
}

// CheckUserdata is TestUserdata for argument arg, failing with a type error
// naming tname.
func (s *State) CheckUserdata(arg int, tname string) ([]byte, error) {
	data, ok := s.TestUserdata(arg, tname)
	if !ok {
		return nil, s.typeError(arg, tname)
	}
	return data, nil
}

// NewUserdataWithMetatable pushes a new userdata of size bytes carrying the
// metatable registered under tname.
func (s *State) NewUserdataWithMetatable(size int, tname string) []byte {
	data := s.NewUserdata(size)
	s.SetMetatableName(-1, tname)
	return data
}
