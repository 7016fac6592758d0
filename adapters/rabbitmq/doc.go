/*
Package rabbitmq provides a RabbitMQ notification sink for the mediator.
Notifications are published as JSON to a topic exchange, routed by subject.
It includes an auto-reconnecting publisher and supports optional header
propagation via a mediator.HeaderPropagator.
*/
package rabbitmq
