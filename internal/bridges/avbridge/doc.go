// Package avbridge implements the theatre device interfaces over MQTT.
//
// Each physical device is fronted by a bridge process that speaks the
// device's serial or IP protocol. The controller talks to the bridges with
// three kinds of messages:
//
//	{prefix}/state/{device}/{kind}          bridge → controller, JSON StateMessage
//	{prefix}/command/{device}               controller → bridge, JSON CommandMessage
//	{prefix}/request/{device}/{request_id}  controller → bridge, JSON RequestMessage
//	{prefix}/response/{device}/{request_id} bridge → controller, JSON ResponseMessage
//
// State messages become device events. Commands are fire-and-forget;
// requests wait for the matching response. Both go through a per-device
// circuit breaker so an unplugged device fails fast instead of stalling
// every rule that touches it.
package avbridge
