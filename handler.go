package main

import (
	"context"
	"errors"
	"net"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/oxzi/gomaster/internal"
)

// maxPacketSize is the largest datagram to be read from a listening socket.
const maxPacketSize = 1400

// PacketHandler serves the master server's protocol on a listening socket.
// Serve blocks until the connection is closed or an error occurs.
type PacketHandler interface {
	Serve(ctx context.Context, conn net.PacketConn) error
}

// drainHandler reads and discards all datagrams.
type drainHandler struct{}

func (drainHandler) Serve(ctx context.Context, conn net.PacketConn) error {
	buf := make([]byte, maxPacketSize)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		log.WithFields(log.Fields{
			"local": conn.LocalAddr(),
			"peer":  peer,
			"size":  n,
		}).Debug("Dropping datagram")
	}
}

// serve hands each bound socket over to the handler and blocks until the
// context is done or one handler fails. All connections are closed afterwards.
func serve(ctx context.Context, socks []internal.ListenSocket, handler PacketHandler) (err error) {
	conns := make([]net.PacketConn, 0, len(socks))
	defer func() {
		for _, conn := range conns {
			multierr.AppendInto(&err, conn.Close())
		}
	}()

	for _, ls := range socks {
		conn, connErr := ls.PacketConn()
		if connErr != nil {
			log.WithError(connErr).WithField("listen", ls.String()).Error("Failed to hand over socket")
			return connErr
		}
		conns = append(conns, conn)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(conns))
	for _, conn := range conns {
		go func(conn net.PacketConn) {
			errCh <- handler.Serve(ctx, conn)
		}(conn)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil

	case handlerErr := <-errCh:
		if handlerErr != nil {
			log.WithError(handlerErr).Error("Packet handler failed, shutting down")
		}
		return handlerErr
	}
}
