package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "contact":
		handleContact(args)
	case "product":
		handleProduct(args)
	case "txn":
		handleTransaction(args)
	case "seed":
		seedDemoData()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bizledger auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleContact(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bizledger contact <list|create|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listContacts()
	case "create":
		createContact(args[1:])
	case "delete":
		deleteResource("contacts", args[1:], "Contact")
	default:
		fmt.Printf("unknown contact command: %s\n", subCmd)
	}
}

func handleProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bizledger product <list|create|adjust|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listProducts(args[1:])
	case "create":
		createProduct(args[1:])
	case "adjust":
		adjustStock(args[1:])
	case "delete":
		deleteResource("products", args[1:], "Product")
	default:
		fmt.Printf("unknown product command: %s\n", subCmd)
	}
}

func handleTransaction(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bizledger txn <list|create|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listTransactions()
	case "create":
		createTransaction(args[1:])
	case "delete":
		deleteResource("transactions", args[1:], "Transaction")
	default:
		fmt.Printf("unknown txn command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "user email")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	business := fs.String("business", "", "business name")

	fs.Parse(args)

	if *email == "" || *username == "" || *password == "" || *name == "" || *business == "" {
		fmt.Println("Error: name, email, username, password, and business are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":         *name,
		"email":        *email,
		"username":     *username,
		"password":     *password,
		"businessName": *business,
	}

	result, status, err := post("/auth/register", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if token := tokenFromResult(result); token != "" {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	login := fs.String("login", "", "email or username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *login == "" || *password == "" {
		fmt.Println("Error: login and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"login": *login, "password": *password}
	result, status, err := post("/auth/login", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 200 {
		if token := tokenFromResult(result); token != "" {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *login)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	// Server-side revocation first, then drop the local copy.
	req, _ := http.NewRequest("GET", getAPIURL()+"/auth/logout", nil)
	addAuthHeader(req)
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
	}
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Contact commands
func listContacts() {
	items, ok := getList("/contacts")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tEMAIL\tPHONE")
	for _, c := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", c["id"], c["name"], c["type"], c["email"], c["phone"])
	}
	w.Flush()
}

func createContact(args []string) {
	fs := flag.NewFlagSet("contact create", flag.ExitOnError)
	name := fs.String("name", "", "contact name")
	email := fs.String("email", "", "contact email")
	phone := fs.String("phone", "", "contact phone")
	address := fs.String("address", "", "contact address (optional)")
	ctype := fs.String("type", "customer", "customer or vendor")

	fs.Parse(args)

	payload := map[string]string{
		"name": *name, "email": *email, "phone": *phone, "type": *ctype,
	}
	if *address != "" {
		payload["address"] = *address
	}

	result, status, err := post("/contacts", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Contact created: %s\n", *name)
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

// Product commands
func listProducts(args []string) {
	fs := flag.NewFlagSet("product list", flag.ExitOnError)
	query := fs.String("q", "", "name filter")
	category := fs.String("category", "", "category filter")
	fs.Parse(args)

	path := "/products"
	params := []string{}
	if *query != "" {
		params = append(params, "q="+*query)
	}
	if *category != "" {
		params = append(params, "category="+*category)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	items, ok := getList(path)
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", p["id"], p["name"], p["price"], p["stock"], p["category"])
	}
	w.Flush()
}

func createProduct(args []string) {
	fs := flag.NewFlagSet("product create", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	price := fs.Float64("price", 0, "unit price")
	stock := fs.Int("stock", 0, "initial stock")
	category := fs.String("category", "", "category (optional)")
	description := fs.String("description", "", "description (optional)")

	fs.Parse(args)

	payload := map[string]interface{}{
		"name": *name, "price": *price, "stock": *stock,
	}
	if *category != "" {
		payload["category"] = *category
	}
	if *description != "" {
		payload["description"] = *description
	}

	result, status, err := post("/products", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Product created: %s\n", *name)
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func adjustStock(args []string) {
	fs := flag.NewFlagSet("product adjust", flag.ExitOnError)
	id := fs.String("id", "", "product id")
	delta := fs.Int("delta", 0, "stock delta (negative to consume)")

	fs.Parse(args)

	if *id == "" || *delta == 0 {
		fmt.Println("Error: id and a non-zero delta are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]int{"delta": *delta}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PATCH", getAPIURL()+"/products/"+*id+"/stock", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if data, ok := result["data"].(map[string]interface{}); ok {
			fmt.Printf("✓ Stock adjusted: now %v\n", data["stock"])
		}
	} else {
		fmt.Printf("✗ Adjustment failed: %v\n", result)
	}
}

// Transaction commands
func listTransactions() {
	items, ok := getList("/transactions")
	if !ok {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTOTAL\tTIMESTAMP")
	for _, t := range items {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", t["id"], t["type"], t["totalAmount"], t["timestamp"])
	}
	w.Flush()
}

func createTransaction(args []string) {
	fs := flag.NewFlagSet("txn create", flag.ExitOnError)
	ttype := fs.String("type", "sale", "sale or purchase")
	counterparty := fs.String("counterparty", "", "customer or vendor id")
	product := fs.String("product", "", "product id")
	quantity := fs.Int("quantity", 1, "quantity")

	fs.Parse(args)

	if *counterparty == "" || *product == "" {
		fmt.Println("Error: counterparty and product are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"type": *ttype,
		"items": []map[string]interface{}{
			{"productId": *product, "quantity": *quantity},
		},
	}
	if *ttype == "purchase" {
		payload["vendorId"] = *counterparty
	} else {
		payload["customerId"] = *counterparty
	}

	result, status, err := post("/transactions", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Println("✓ Transaction committed")
	} else {
		fmt.Printf("✗ Transaction failed: %v\n", result)
	}
}

// seedDemoData provisions a demo account with a few contacts and products.
func seedDemoData() {
	payload := map[string]string{
		"name":         "Demo Owner",
		"email":        "demo@bizledger.local",
		"username":     "demo",
		"password":     "demo-password-1",
		"businessName": "Demo Trading Co",
	}
	result, status, err := post("/auth/register", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status != 201 {
		fmt.Printf("✗ Seed registration failed: %v\n", result)
		return
	}
	if token := tokenFromResult(result); token != "" {
		saveToken(token)
	}

	contacts := []map[string]string{
		{"name": "Acme Retail", "email": "orders@acme.example", "phone": "555-0100", "type": "customer"},
		{"name": "Widget Supply Co", "email": "sales@widgets.example", "phone": "555-0200", "type": "vendor"},
	}
	for _, c := range contacts {
		if _, status, err := post("/contacts", c); err != nil || status != 201 {
			fmt.Printf("✗ Seed contact failed: %v\n", c["name"])
		}
	}

	products := []map[string]interface{}{
		{"name": "Widget", "price": 4.50, "stock": 100, "category": "parts"},
		{"name": "Gadget", "price": 12.00, "stock": 40, "category": "parts"},
		{"name": "Gizmo", "price": 27.99, "stock": 15, "category": "assemblies"},
	}
	for _, p := range products {
		if _, status, err := post("/products", p); err != nil || status != 201 {
			fmt.Printf("✗ Seed product failed: %v\n", p["name"])
		}
	}

	fmt.Println("✓ Demo data seeded (login: demo / demo-password-1)")
}

func deleteResource(resource string, args []string, label string) {
	if len(args) < 1 {
		fmt.Printf("Usage: bizledger %s delete <id>\n", strings.TrimSuffix(resource, "s"))
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/"+resource+"/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ %s deleted\n", label)
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Delete failed: %v\n", result)
	}
}

// Helper functions
func post(path string, payload interface{}) (map[string]interface{}, int, error) {
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func getList(path string) ([]map[string]interface{}, bool) {
	req, _ := http.NewRequest("GET", getAPIURL()+path, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	var result struct {
		Success bool                     `json:"success"`
		Data    []map[string]interface{} `json:"data"`
		Message string                   `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %s\n", result.Message)
		return nil, false
	}
	return result.Data, true
}

func tokenFromResult(result map[string]interface{}) string {
	data, ok := result["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	token, _ := data["token"].(string)
	return token
}

func getAPIURL() string {
	if url := os.Getenv("BIZLEDGER_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api/v1"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.bizledger/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.bizledger", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`BizLedger CLI

Usage:
  bizledger <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  contact  Contact operations (list, create, delete)
  product  Product operations (list, create, adjust, delete)
  txn      Transaction operations (list, create, delete)
  seed     Seed a demo account with sample contacts and products
  help     Show this help message

Environment Variables:
  BIZLEDGER_API    API endpoint (default: http://localhost:8080/api/v1)

Examples:
  bizledger auth register -name "Ada" -email ada@example.com -username ada -password secret123 -business "Engines Ltd"
  bizledger auth login -login ada -password secret123
  bizledger product create -name Widget -price 4.50 -stock 100
  bizledger txn create -type sale -counterparty <contact-id> -product <product-id> -quantity 3
`)
}
