// Package command decodes user commands and runs them on the modem or a
// remote device.
//
// Payloads are JSON objects naming the command in "cmd":
//
//	{"cmd": "db_add_ctrl_of", "addr": "lamp", "group": 3, "data": [1, 2, 3], "two_way": true}
//	{"cmd": "db_del_resp_of", "addr": "11.22.33", "group": 1}
//	{"cmd": "refresh", "force": true}
//	{"cmd": "refresh_all"}
//	{"cmd": "linking", "group": 1}
//	{"cmd": "pair"}
package command
