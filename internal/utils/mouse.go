package utils

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Pointer queries the X11 root window pointer. A wallpaper window never has
// focus, so this is the only way to follow the mouse over the desktop.
type Pointer struct {
	conn *xgb.Conn
	root xproto.Window
}

func OpenPointer() (*Pointer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	setup := xproto.Setup(conn)
	return &Pointer{
		conn: conn,
		root: setup.DefaultScreen(conn).Root,
	}, nil
}

// Position returns the pointer in root window coordinates.
func (p *Pointer) Position() (int, int, error) {
	reply, err := xproto.QueryPointer(p.conn, p.root).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(reply.RootX), int(reply.RootY), nil
}

func (p *Pointer) Close() {
	p.conn.Close()
}
