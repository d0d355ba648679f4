package admin

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/ottdctl/internal/observability"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/frame"
	"github.com/danmuck/ottdctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// writeLoop is the single writer of the connection. Each frame goes out in
// one Write call so frames never interleave.
func (c *Client) writeLoop(ctx context.Context) {
	defer close(c.writerDone)
	for {
		buf, err := c.outbox.Next(ctx)
		if err != nil {
			if errors.Is(err, session.ErrOutboxClosed) || ctx.Err() != nil {
				return
			}
			log.Warn().Msgf("admin.Client writer server=%q err=%v", c.cfg.Name, err)
			continue
		}
		c.writeFrame(buf)
	}
}

func (c *Client) writeFrame(buf []byte) {
	packet := packetName(buf)
	conn := c.currentConn()
	if conn == nil {
		observability.RecordFrameSent(c.cfg.Name, packet, false)
		log.Debug().Msgf("admin.Client drop frame server=%q packet=%s: not connected", c.cfg.Name, packet)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.Session.WriteTimeout))
	if _, err := conn.Write(buf); err != nil {
		observability.RecordFrameSent(c.cfg.Name, packet, false)
		log.Warn().Msgf("admin.Client write server=%q packet=%s err=%v", c.cfg.Name, packet, err)
		return
	}
	observability.RecordFrameSent(c.cfg.Name, packet, true)
}

func packetName(buf []byte) string {
	if len(buf) < int(frame.HeaderLen) {
		return protocol.TypeInvalid.String()
	}
	return protocol.PacketType(buf[frame.LengthLen]).String()
}
