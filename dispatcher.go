package ipcwire

// dispatch routes one inbound frame. A frame matching an in-flight
// synchronous call's pending codes is handed to that call's rendezvous and
// never reaches the Handler; everything else is either an application
// callback invocation or a control frame (Connect, Disconnect).
func (c *Connection) dispatch(f Frame) error {
	if c.takePending(f) {
		return nil
	}

	switch fr := f.(type) {
	case *ExecuteFrame:
		c.handler.OnExecute(c.topic, fr.Data, fr.Format)
		return nil
	case *RequestFrame:
		return c.handleRequest(fr)
	case *PokeFrame:
		c.handler.OnPoke(c.topic, fr.Item, fr.Data, fr.Format)
		return nil
	case *AdviseStartFrame:
		return c.handleAdviseStart(fr)
	case *AdviseRequestFrame:
		// Defined on the wire but not in the Handler capability set; see
		// DESIGN.md. Logged and otherwise ignored — it must not be treated
		// as an unknown code, which would be terminal.
		c.logger.Warn("unconsumed AdviseRequest", "item", fr.Item)
		return nil
	case *AdviseFrame:
		c.handler.OnAdvise(c.topic, fr.Item, fr.Data, fr.Format)
		return nil
	case *AdviseStopFrame:
		return c.handleAdviseStop(fr)
	case *RequestReplyFrame, *FailFrame:
		// spec.md §9's open question on unsolicited Fail is resolved here:
		// a reply frame with no matching pendingWait is terminal. The
		// invariant that a synchronous reply is always the very next frame
		// means an unmatched one only happens under desync or a
		// misbehaving peer, never in steady state.
		return c.protocolFault(errUnsolicitedReply)
	case *ConnectFrame:
		return c.protocolFault(errProtocolConnectAfterOpen)
	case *DisconnectFrame:
		return errPeerDisconnected
	default:
		return c.protocolFault(errUnknownCode)
	}
}

func (c *Connection) handleRequest(fr *RequestFrame) error {
	data, size := c.handler.OnRequest(c.topic, fr.Item, fr.Format)
	if data == nil {
		return c.writeFrame(&FailFrame{Reason: "request refused"})
	}
	if size < 0 {
		size = inferSize(fr.Format, data)
	}
	return c.writeFrame(&RequestReplyFrame{Format: fr.Format, Item: fr.Item, Data: data[:size]})
}

func (c *Connection) handleAdviseStart(fr *AdviseStartFrame) error {
	if !c.handler.OnStartAdvise(c.topic, fr.Item) {
		return c.writeFrame(&FailFrame{Reason: "advise refused"})
	}
	return c.writeFrame(&AdviseStartFrame{Item: fr.Item})
}

func (c *Connection) handleAdviseStop(fr *AdviseStopFrame) error {
	if !c.handler.OnStopAdvise(c.topic, fr.Item) {
		return c.writeFrame(&FailFrame{Reason: "advise refused"})
	}
	return c.writeFrame(&AdviseStopFrame{Item: fr.Item})
}

// protocolFault wraps cause as a ProtocolError. It always returns a non-nil
// error so the caller's read loop unwinds; Run's teardown then reports the
// fault and closes the connection.
func (c *Connection) protocolFault(cause error) error {
	return protocolErr("dispatch", cause)
}
