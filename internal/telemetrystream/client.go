// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package telemetrystream

import (
	"fmt"
	"net"
)

// Send opens a fresh connection to addr, writes one length-prefixed
// frame, and closes. The client never reuses connections, even across
// periodic sends — each upload is independent.
func Send(addr, filename string, content []byte) error {
	prefix, err := encodeLength(len(filename))
	if err != nil {
		return fmt.Errorf("encoding filename length: %w", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing telemetrystream server: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(prefix); err != nil {
		return fmt.Errorf("writing length prefix: %w", err)
	}
	if _, err := conn.Write([]byte(filename)); err != nil {
		return fmt.Errorf("writing filename: %w", err)
	}
	if _, err := conn.Write(content); err != nil {
		return fmt.Errorf("writing file content: %w", err)
	}
	return nil
}
