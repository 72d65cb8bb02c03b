package missionlink

import "net"

// SendInlineMessage runs a complete client-initiated transfer: open,
// send an inline body under the given mission-id and operation tag,
// then close — returning whatever response body the receiver's close
// frame carried.
func SendInlineMessage(ep *Endpoint, mothership net.Addr, agentID, missionID string, op Operation, body []byte, retryLimit int) ([]byte, error) {
	c, err := OpenClient(ep, mothership, agentID, retryLimit)
	if err != nil {
		return nil, err
	}
	c.SetMissionID(missionID)
	if err := c.SendInline(op, body); err != nil {
		return nil, err
	}
	return c.CloseInitiator()
}

// SendFileMessage runs a complete client-initiated file transfer: open,
// send the filename announcement then the file's bytes, then close.
func SendFileMessage(ep *Endpoint, mothership net.Addr, agentID, missionID string, op Operation, filename string, content []byte, retryLimit int) ([]byte, error) {
	c, err := OpenClient(ep, mothership, agentID, retryLimit)
	if err != nil {
		return nil, err
	}
	c.SetMissionID(missionID)
	if err := c.SendFile(op, filename, content); err != nil {
		return nil, err
	}
	return c.CloseInitiator()
}
