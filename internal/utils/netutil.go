package utils

import (
	"fmt"
	"net"
	"time"
)

/**
 * Check whether something accepts TCP connections on a localhost port
 * @param {int} port - Local port to probe
 * @returns {bool} Returns true when a connection is accepted within 1s
 */
func CheckPortConnectable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		return false
	}
	if conn != nil {
		conn.Close()
		return true
	}
	return false
}

/**
 * Check whether a local port can be bound for listening
 * @param {int} port - Local port to probe
 * @returns {bool} Returns true when binding succeeds
 * @description
 * - Platform implementations disable SO_REUSEADDR so a port still held by
 *   a dying process is reported as bound
 * - The bind is released immediately; the answer is advisory and can race
 *   with other processes
 */
func CheckPortListenable(port int) bool {
	return checkPortListenable(port)
}

/**
 * Check whether a port is free for a new session
 * @param {int} port - Local port to probe
 * @returns {bool} Returns true when nothing is bound on the port
 */
func CheckPortAvailable(port int) bool {
	return checkPortListenable(port)
}
